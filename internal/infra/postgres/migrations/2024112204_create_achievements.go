package migrations

import _ "embed"

//go:embed 0004_create_achievements.sql
var createAchievementsSQL string

func init() {
	Migrations.MustRegister(execSQL(createAchievementsSQL), dropTables("user_achievements", "achievements"))
}
