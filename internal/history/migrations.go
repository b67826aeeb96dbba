package history

import "embed"

// Migrations встроенные SQL миграции для таблицы solve_records
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir каталог миграций внутри Migrations
const MigrationsDir = "migrations"
