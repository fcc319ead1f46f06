package config

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Storage struct {
	DBDriver string `env:"DB_DRIVER" envDefault:"sqlite"`
	DBDSN    string `env:"DB_DSN" envDefault:"./data/credentials.db"`
}

var _ StorageConfig = Storage{}

func (s Storage) GetDBDriver() string {
	return s.DBDriver
}

func (s Storage) GetDBDSN() string {
	return s.DBDSN
}
