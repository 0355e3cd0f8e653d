package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/ironlot/settlement/internal/actorctx"
)

const (
	headerActorID   = "X-Actor-Id"
	headerActorRole = "X-Actor-Role"
)

// ActorMiddleware lifts the gateway-injected actor identity headers into the
// request context. Requests without a valid actor still pass through; the
// invoice service rejects unattributed commands.
func ActorMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := actorctx.ParseRole(c.GetHeader(headerActorRole))
		if !ok {
			c.Next()
			return
		}

		var actorID snowflake.ID
		if raw := strings.TrimSpace(c.GetHeader(headerActorID)); raw != "" {
			parsed, err := snowflake.ParseString(raw)
			if err != nil {
				c.Next()
				return
			}
			actorID = parsed
		}
		if actorID == 0 && role != actorctx.RoleSystem {
			c.Next()
			return
		}

		ctx := actorctx.WithActor(c.Request.Context(), actorctx.Actor{
			ID:   actorID,
			Role: role,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
