package repositories

import "github.com/rios0rios0/depaudit/internal/domain/entities"

// MetricsRepository records pipeline outcomes for observability.
type MetricsRepository interface {
	ObserveAudit(stats entities.AuditStats, err error)
	ObserveLookup(ecosystem entities.Ecosystem, succeeded bool)
	ObserveRemediation(step string, err error)
}
