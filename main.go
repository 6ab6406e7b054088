package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"statusflow/bizerror"
	"statusflow/client/es"
	"statusflow/common"
	"statusflow/domain/flow"
	"statusflow/domain/record"
	"statusflow/event"
	"statusflow/indices"
	"statusflow/infra/tracing"
	"statusflow/persistence"
	"statusflow/servehttp"
	"statusflow/session"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	listenAddr string
	workers    int
	rateLimit  float64
	seedFile   string
)

var rootCmd = &cobra.Command{
	Use:   "statusflow",
	Short: "State transition service for status driven records",
	Run: func(cmd *cobra.Command, args []string) {
		_ = cmd.Help()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the REST API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := startDataSource()
		if err != nil {
			return err
		}
		defer ds.Stop()

		closer, err := tracing.InitGlobalTracer()
		if err != nil {
			return err
		}
		defer closer.Close()

		record.ConfigureBatch(record.NewBatchOptions(workers, rateLimit))

		if token := os.Getenv("BOOTSTRAP_ADMIN_TOKEN"); token != "" {
			session.RegisterToken(token, session.Identity{ID: 1, Name: "admin", Nickname: "Administrator"},
				session.Permissions{session.SystemAdminPermission})
		}

		engine := gin.Default()
		engine.Use(bizerror.ErrorHandling(), tracing.TracingIngress())
		engine.GET("/", func(c *gin.Context) {
			c.String(http.StatusOK, common.GetServiceName())
		})
		engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

		auth := session.SimpleAuthFilter()
		session.RegisterSessionRestAPI(engine, auth)
		servehttp.RegisterApplicationTransitionsRestAPI(engine, auth)
		servehttp.RegisterStatusChangesRestAPI(engine, auth)

		if os.Getenv("ELASTICSEARCH_URL") != "" {
			if _, err := es.CreateClientFromEnv(); err != nil {
				return fmt.Errorf("create elasticsearch client: %w", err)
			}
			if err := indices.EnsureStatusChangeIndex(context.Background()); err != nil {
				return fmt.Errorf("ensure status change index: %w", err)
			}
			event.RegisterHandler(indices.IndexStatusChangeEventHandle)
			indices.RegisterIndicesRestAPI(engine, auth)
			go func() {
				if err := indices.IndicesSyncFunc(context.Background()); err != nil {
					logrus.Warnf("initial indices sync: %v", err)
				}
			}()
		}

		return servehttp.StartHTTPServer(engine, listenAddr)
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	RunE: func(cmd *cobra.Command, args []string) error {
		ds, err := startDataSource()
		if err != nil {
			return err
		}
		defer ds.Stop()

		err = ds.GormDB(cmd.Context()).AutoMigrate(&flow.PossibleStatusChange{}, &record.Application{},
			&record.PerformedStatusChange{}, &event.EventRecord{}).Error
		if err != nil {
			return fmt.Errorf("database migration failed: %w", err)
		}
		logrus.Info("database migrated")
		return nil
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the status changes of a scope from a YAML definition",
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(seedFile)
		if err != nil {
			return err
		}
		defer f.Close()
		definition, err := flow.ParseDefinition(f)
		if err != nil {
			return err
		}

		ds, err := startDataSource()
		if err != nil {
			return err
		}
		defer ds.Stop()

		sec := &session.Context{Identity: session.Identity{Name: "seed"}, Perms: session.Permissions{session.SystemAdminPermission}}
		created, err := flow.CreateStatusChangesFunc(cmd.Context(), definition.ScopeID, definition.StatusChanges(), sec)
		if err != nil {
			return fmt.Errorf("seed scope %d: %w", definition.ScopeID, err)
		}
		logrus.Infof("%d status changes created in scope %d", len(created), definition.ScopeID)
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddr, "listen", "l", common.EnvString("LISTEN_ADDR", ":80"), "address to serve on")
	serveCmd.Flags().IntVarP(&workers, "workers", "w", common.EnvInt("BATCH_WORKERS", 4), "workers per batch transition")
	serveCmd.Flags().Float64VarP(&rateLimit, "rate", "r", common.EnvFloat("BATCH_RATE_LIMIT", 0),
		"records per second of a batch transition, 0 for unlimited")
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "scope definition file")
	_ = seedCmd.MarkFlagRequired("file")

	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func startDataSource() (*persistence.DataSourceManager, error) {
	dbConfig, err := persistence.ParseDatabaseConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("parse database config failed: %w", err)
	}

	// create database (no conflict)
	if dbConfig.DriverType == "mysql" {
		if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
			return nil, fmt.Errorf("failed to prepare database: %w", err)
		}
	}

	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}
	persistence.ActiveDataSourceManager = ds
	return ds, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
