package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridelink/internal/models"
)

const actorKey = "actor"

// JWTClaims are the claims the identity service signs into access
// tokens. VehicleType is only present on driver tokens.
type JWTClaims struct {
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
	VehicleType string `json:"vehicle_type,omitempty"`
	jwt.RegisteredClaims
}

// AuthRequired validates the bearer token and stores the resulting
// Actor in the request context.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			c.Abort()
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Bearer token required"})
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid user ID in token"})
			c.Abort()
			return
		}

		role := models.ActorRole(claims.Role)
		if role != models.RoleDriver && role != models.RolePassenger {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown role in token"})
			c.Abort()
			return
		}

		c.Set(actorKey, models.Actor{
			ID:          userID,
			Role:        role,
			VehicleType: models.VehicleType(claims.VehicleType),
		})

		c.Next()
	}
}

// DriverRequired ensures the authenticated actor is a driver.
func DriverRequired() gin.HandlerFunc {
	return requireRole(models.RoleDriver, "Driver access required")
}

// PassengerRequired ensures the authenticated actor is a passenger.
func PassengerRequired() gin.HandlerFunc {
	return requireRole(models.RolePassenger, "Passenger access required")
}

func requireRole(role models.ActorRole, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := ActorFromContext(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}
		if actor.Role != role {
			c.JSON(http.StatusForbidden, gin.H{"error": message})
			c.Abort()
			return
		}
		c.Next()
	}
}

// ActorFromContext reads the Actor placed by AuthRequired.
func ActorFromContext(c *gin.Context) (models.Actor, bool) {
	value, exists := c.Get(actorKey)
	if !exists {
		return models.Actor{}, false
	}
	actor, ok := value.(models.Actor)
	return actor, ok
}
