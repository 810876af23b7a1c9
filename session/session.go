// Package session wraps one decrypted config plus a pubsub logger for the
// duration of a single command invocation, generalising
// owasp-amass-engine's sessions.session away from a process-wide
// singleton.
package session

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/netdox/netdox/config"
	"github.com/netdox/netdox/datastore"
	"github.com/netdox/netdox/neterr"
	"github.com/netdox/netdox/pubsub"
)

// Session is the per-run state a command operates against.
type Session struct {
	ID     uuid.UUID
	Log    *slog.Logger
	PubSub *pubsub.Logger
	Config *config.Config
	Store  *datastore.Store
}

// New builds a Session from an already-decrypted cfg, opening the
// datastore connection it describes.
func New(cfg *config.Config) (*Session, error) {
	if cfg == nil {
		return nil, neterr.Configf(nil, "cannot create a session with a nil config")
	}

	ps := pubsub.NewLogger()
	log := slog.New(slog.NewJSONHandler(ps, nil)).WithGroup("session")

	conn := datastore.ConnConfig{
		System:   datastore.DBMS(cfg.Datastore.System),
		Host:     cfg.Datastore.Host,
		Port:     cfg.Datastore.Port,
		Username: cfg.Datastore.Username,
		Password: cfg.Datastore.Password,
		DBName:   cfg.Datastore.DBName,
		Path:     cfg.Datastore.Path,
	}
	if conn.System == "" {
		conn.System = datastore.SQLite
	}

	store, err := datastore.Open(conn)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	return &Session{
		ID:     id,
		Log:    log.With("id", id),
		PubSub: ps,
		Config: cfg,
		Store:  store,
	}, nil
}

// Close releases the session's datastore connection.
func (s *Session) Close() error {
	return s.Store.Close()
}
