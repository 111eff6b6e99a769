package db

import (
	"os"

	"github.com/sahzadahmad246/potholemap/models"
	"github.com/sahzadahmad246/potholemap/utils"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var DB *gorm.DB

func InitDB() {
	if err := godotenv.Load(); err != nil {
		utils.LogError(err, "Warning: impossible to load the .env file")
		utils.LogInfo("The environment variable DB_URL must be defined in the system environment")
	}

	dsn := os.Getenv("DB_URL")
	if dsn == "" {
		utils.LogError(nil, "Variable DB_URL not defined")
		panic("Database URL not configured")
	}

	var err error
	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: utils.GetGormLogger(),
		// Surface unique violations as gorm.ErrDuplicatedKey so vote races
		// can be retried instead of bubbling up as raw driver errors.
		TranslateError: true,
	})
	if err != nil {
		utils.LogError(err, "Error connecting to the database")
		panic("Could not connect to the database")
	}

	err = DB.AutoMigrate(
		&models.User{},
		&models.UserPotholeRef{},
		&models.Pothole{},
		&models.PotholeImage{},
		&models.TaggedOfficial{},
		&models.PotholeUpvote{},
		&models.SpamReport{},
		&models.RepairClaim{},
		&models.RepairVote{},
		&models.Comment{},
	)
	if err != nil {
		utils.LogError(err, "Error migrating database")
		panic("Could not migrate database")
	}

	utils.LogSuccess("Database connection successful")
}
