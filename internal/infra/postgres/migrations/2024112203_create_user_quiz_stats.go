package migrations

import _ "embed"

//go:embed 0003_create_user_quiz_stats.sql
var createUserQuizStatsSQL string

func init() {
	Migrations.MustRegister(execSQL(createUserQuizStatsSQL), dropTables("user_quiz_stats"))
}
