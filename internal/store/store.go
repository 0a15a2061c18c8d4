package store

import "github.com/yourorg/authflow/pkg/types"

// Store persists imported capture sessions, their normalized
// exchanges and assembled flow reports.
type Store interface {
	CreateSession(source, scenario, host string) (*types.Session, error)
	GetSession(id string) (*types.Session, error)
	ListSessions() ([]types.Session, error)
	UpdateSessionStatus(id, status string) error
	DeleteSession(id string) error
	SaveExchanges(sessionID string, exchanges []types.CapturedExchange) error
	GetExchanges(sessionID string) ([]types.CapturedExchange, error)
	SaveReport(sessionID string, rep *types.FlowReport) error
	GetReports(sessionID string) ([]types.FlowReport, error)
	Close() error
}
