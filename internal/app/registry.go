package app

import (
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"go-payaudit/internal/audit"
	"go-payaudit/internal/chartofaccounts"
	"go-payaudit/internal/extraction"
	"go-payaudit/internal/knowledgebase"
	"go-payaudit/internal/messaging/kafka"
	"go-payaudit/internal/shared/counter"
	"go-payaudit/internal/taxdecl"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
) error {
	extractTimeout := 60 * time.Second
	if v := os.Getenv("EXTRACTOR_TIMEOUT"); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil {
			extractTimeout = parsed
		}
	}

	// --- Repositories ---
	auditRepo := audit.NewRepository(gormDB, db)
	kbRepo := knowledgebase.NewRepository(gormDB, db)
	coaProvider := chartofaccounts.NewProvider(gormDB)
	counterRepo := counter.NewRepository(gormDB)
	declarationStore := taxdecl.NewStore(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- External collaborators ---
	extractor := extraction.NewHTTPAdapter(
		os.Getenv("EXTRACTOR_URL"),
		&http.Client{Timeout: extractTimeout},
	)

	// --- Services ---
	kbService := knowledgebase.NewService(db, kbRepo, extractor, outboxRepo, extractTimeout)
	auditService := audit.NewService(
		db,
		auditRepo,
		kbService,
		declarationStore,
		extractor,
		audit.NewComplianceAuditor(),
		audit.NewTaxReconciler(audit.NewPassthroughCalculator()),
		audit.NewEntryGenerator(coaProvider, counterRepo),
		outboxRepo,
		extractTimeout,
	)

	// --- Handlers ---
	kbHandler := knowledgebase.NewHandler(kbService)
	auditHandler := audit.NewHandlerWithRedis(auditService, rdb)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		audit.RegisterRoutes(api, auditHandler, rdb)
		knowledgebase.RegisterRoutes(api, kbHandler)
	}

	return nil
}
