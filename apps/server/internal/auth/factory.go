package auth

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
)

type Options struct {
	Mode        string
	SQLitePath  string
	PostgresDSN string
	SessionTTL  time.Duration
}

func NewService(opts Options) (Service, error) {
	logger := log.WithFields(log.Fields{"component": "auth", "mode": opts.Mode})

	switch opts.Mode {
	case ModeMemory, "":
		logger.Info("using in-memory accounts; they are lost on restart")
		return NewManager(opts.SessionTTL), nil
	case ModeSQLite:
		m, err := NewSQLiteManager(opts.SQLitePath, opts.SessionTTL)
		if err != nil {
			return nil, err
		}
		logger.WithField("path", opts.SQLitePath).Info("sqlite auth ready")
		return m, nil
	case ModePostgres:
		m, err := NewPostgresManager(opts.PostgresDSN, opts.SessionTTL)
		if err != nil {
			return nil, err
		}
		logger.Info("postgres auth ready")
		return m, nil
	default:
		return nil, fmt.Errorf("invalid auth mode %q (supported: %s, %s, %s)", opts.Mode, ModeMemory, ModeSQLite, ModePostgres)
	}
}
