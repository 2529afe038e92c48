package app

import (
	"database/sql"

	"github.com/go-chi/oauth"

	"github.com/rlombardo/audit-king/ai"
	"github.com/rlombardo/audit-king/config"
)

type App struct {
	*sql.DB
	*oauth.BearerServer
	config.Config
	AI *ai.Client
}
