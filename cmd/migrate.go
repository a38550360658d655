package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/stampcard-app/stampcard/stampcard"
	"github.com/stampcard-app/stampcard/stampcard/database"
	"github.com/stampcard-app/stampcard/stampcard/migration"
)

var (
	migrateConfigPath string
	migrateDataDir    string
	migrateMongoURI   string
	migrateMongoDB    string
	migrateBatchSize  int
	migrateUseCopy    bool
	migrateSleepMS    int
)

var migrateCMD = &cobra.Command{
	Use:   "migrate",
	Short: "import the legacy document-store export into Postgres",
	RunE: func(cmd *cobra.Command, args []string) error {

		ctx := cmd.Context()

		cfg, err := stampcard.LoadConfig(migrateConfigPath)
		if err != nil {
			slog.Error("Failed to load configuration", "error", err)
			return err
		}

		db, err := database.New(ctx, database.DBConfig{
			Host:     cfg.DB.Host,
			Port:     cfg.DB.Port,
			User:     cfg.DB.User,
			Password: cfg.DB.Password,
			Database: cfg.DB.Database,
			PoolSize: cfg.DB.PoolSize,
		})
		if err != nil {
			slog.Error("Failed to connect to database", "error", err)
			return err
		}
		defer db.Close()

		if err := db.InitializeSchema(ctx); err != nil {
			slog.Error("Failed to initialize schema", "error", err)
			return err
		}

		migrator := migration.NewMigrator(db.BunDB(), migrateDataDir)
		migrator.SetBatchSize(migrateBatchSize)
		migrator.SetSleepBetween(migrateSleepMS)
		if migrateUseCopy {
			migrator.SetUseCopy(true)
			migrator.UsePool(db.GetPool())
		}

		if migrateMongoURI != "" {
			client, err := mongo.Connect(ctx, options.Client().ApplyURI(migrateMongoURI))
			if err != nil {
				slog.Error("Failed to connect to MongoDB", "error", err)
				return err
			}
			defer client.Disconnect(ctx)

			migrator.UseMongo(client, migrateMongoDB)
			if err := migrator.MigrateAllFromMongo(ctx); err != nil {
				slog.Error("Migration failed", "error", err)
				return err
			}
		} else {
			if err := migrator.MigrateAll(ctx); err != nil {
				slog.Error("Migration failed", "error", err)
				return err
			}
		}

		slog.Info("Migration completed successfully!")

		return nil
	},
}

func init() {
	migrateCMD.Flags().StringVar(&migrateConfigPath, "config", "config.toml", "path to config")
	migrateCMD.Flags().StringVar(&migrateDataDir, "data-dir", "./data", "directory with restaurant.bson and registered-restaurant.bson")
	migrateCMD.Flags().StringVar(&migrateMongoURI, "mongo-uri", "", "migrate from a live MongoDB instead of dump files")
	migrateCMD.Flags().StringVar(&migrateMongoDB, "mongo-db", "dine-rewards", "MongoDB database name")
	migrateCMD.Flags().IntVar(&migrateBatchSize, "batch-size", 1000, "rows per insert batch")
	migrateCMD.Flags().BoolVar(&migrateUseCopy, "use-copy", false, "use pgx COPY for bulk inserts")
	migrateCMD.Flags().IntVar(&migrateSleepMS, "sleep-ms", 0, "sleep between batches (milliseconds)")
	rootCmd.AddCommand(migrateCMD)
}
