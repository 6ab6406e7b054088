package testinfra

import (
	"context"
	"os"
	"statusflow/persistence"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type TestDatabase struct {
	TestDatabaseName string
	DS               *persistence.DataSourceManager
}

// StartMysqlTestDatabase creates a throw-away database on TEST_MYSQL_SERVICE, e.g. root:root@(127.0.0.1:3306).
// The test is skipped when no service is configured.
func StartMysqlTestDatabase(t testing.TB, baseName string) *TestDatabase {
	mysqlSvc := os.Getenv("TEST_MYSQL_SERVICE")
	if mysqlSvc == "" {
		t.Skip("TEST_MYSQL_SERVICE is not set")
	}
	databaseName := baseName + "_test_" + strings.ReplaceAll(uuid.New().String(), "-", "")

	dbConfig := &persistence.DatabaseConfig{
		DriverType: "mysql", DriverArgs: mysqlSvc + "/" + databaseName + "?charset=utf8mb4&parseTime=True&loc=Local&timeout=5s",
	}
	if err := persistence.PrepareMysqlDatabase(dbConfig.DriverArgs); err != nil {
		t.Fatalf("failed to prepare database %v", err)
	}

	ds := &persistence.DataSourceManager{DatabaseConfig: dbConfig}
	if err := ds.Start(); err != nil {
		ds.Stop()
		t.Fatalf("database connection failed %v", err)
	}
	return &TestDatabase{TestDatabaseName: databaseName, DS: ds}
}

func StopMysqlTestDatabase(testDatabase *TestDatabase) {
	if testDatabase == nil || testDatabase.DS == nil {
		return
	}
	if db := testDatabase.DS.GormDB(context.Background()); db != nil {
		if err := db.Exec("DROP DATABASE " + testDatabase.TestDatabaseName).Error; err != nil {
			logrus.Warnf("failed to drop test database %s: %v", testDatabase.TestDatabaseName, err)
		} else {
			logrus.Infof("test database %s dropped", testDatabase.TestDatabaseName)
		}
	}
	testDatabase.DS.Stop()
}
