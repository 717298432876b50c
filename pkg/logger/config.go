package logger

import "log/slog"

type Backend string

const (
	BackendStd Backend = "std" // text handler, для dev
	BackendZap Backend = "zap" // JSON через slog-zap, для stage/prod
)

type Env string

const (
	EnvDev   Env = "dev"
	EnvStage Env = "stage"
	EnvProd  Env = "prod"
)

type Config struct {
	// Метаданные сервиса
	Service    string
	Version    string
	InstanceID string

	// Управление выводом
	Level   slog.Level
	Env     Env
	Backend Backend // default: zap для stage/prod, std для dev
	Debug   bool

	// Zap sampling при всплесках
	SampleInitial    int
	SampleThereafter int

	AddSource bool
}
