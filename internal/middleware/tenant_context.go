package middleware

import (
	"go-payaudit/internal/shared/contextutil"

	"github.com/gin-gonic/gin"
)

// TenantContext reads the identity headers forwarded by the API gateway
// and exposes them to the handlers. Authentication happens upstream; by
// the time a request reaches this service the headers are trusted.
func TenantContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID := c.GetHeader("X-Company-ID")
		firmID := c.GetHeader("X-Firm-ID")
		operatorID := c.GetHeader("X-Operator-ID")

		c.Set("company_id", companyID)
		c.Set("firm_id", firmID)
		c.Set("operator_id", operatorID)

		ctx := contextutil.WithOperatorID(c.Request.Context(), operatorID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
