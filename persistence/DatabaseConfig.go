package persistence

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/sirupsen/logrus"
)

type DatabaseConfig struct {
	DriverType string
	DriverArgs string
}

// ParseDatabaseConfigFromEnv reads DB_DRIVER_TYPE and DB_DRIVER_ARGS. Without DB_DRIVER_ARGS the mysql dsn is
// assembled from MYSQL_USERNAME, MYSQL_PASSWORD, MYSQL_HOST, MYSQL_PORT and MYSQL_DATABASE.
func ParseDatabaseConfigFromEnv() (*DatabaseConfig, error) {
	driverType := os.Getenv("DB_DRIVER_TYPE")
	if driverType == "" {
		driverType = "mysql"
	}
	if driverArgs := os.Getenv("DB_DRIVER_ARGS"); driverArgs != "" {
		return &DatabaseConfig{DriverType: driverType, DriverArgs: driverArgs}, nil
	}
	if driverType != "mysql" {
		return nil, errors.New("DB_DRIVER_ARGS is required for driver " + driverType)
	}

	cfg := mysql.NewConfig()
	cfg.User = envOrDefault("MYSQL_USERNAME", "root")
	cfg.Passwd = os.Getenv("MYSQL_PASSWORD")
	cfg.Net = "tcp"
	cfg.Addr = envOrDefault("MYSQL_HOST", "127.0.0.1") + ":" + envOrDefault("MYSQL_PORT", "3306")
	cfg.DBName = envOrDefault("MYSQL_DATABASE", "statusflow")
	cfg.ParseTime = true
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return &DatabaseConfig{DriverType: driverType, DriverArgs: cfg.FormatDSN()}, nil
}

// PrepareMysqlDatabase creates the database named in dsn when it does not exist.
func PrepareMysqlDatabase(dsn string) error {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return err
	}
	databaseName := cfg.DBName
	if databaseName == "" {
		return errors.New("database name is missing in dsn")
	}
	if strings.ContainsAny(databaseName, "`;") {
		return fmt.Errorf("invalid database name %q", databaseName)
	}

	cfg.DBName = ""
	db, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logrus.Warnf("failed to close connection: %v", err)
		}
	}()

	_, err = db.Exec("CREATE DATABASE IF NOT EXISTS `" + databaseName + "` DEFAULT CHARACTER SET utf8mb4")
	return err
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
