package config

type QueueConfig struct {
	Enabled bool     `yaml:"enabled"`
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

func loadQueueConfig() *QueueConfig {
	return &QueueConfig{
		Enabled: getEnvAsBool("KAFKA_ENABLED", false),
		Brokers: getEnvAsSlice("KAFKA_BROKERS", []string{"localhost:9092"}),
		Topic:   getEnv("KAFKA_TOPIC", "ride-events"),
	}
}
