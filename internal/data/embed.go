package data

import (
	"embed"
)

//go:embed migrations/*
var migrationsFS embed.FS

func GetMigrationFS() *embed.FS {
	return &migrationsFS
}
