package config

// EnvPrefix scopes every environment variable consumed by the platform.
const EnvPrefix = "COMPTOIR"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DeviceRolePrimary = "primary"
	DeviceRoleMobile  = "mobile"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	EnvDBDSN  = "COMPTOIR_DB_DSN"
	EnvDBHost = "COMPTOIR_DB_HOST"
	EnvDBUser = "COMPTOIR_DB_USER"
	EnvDBName = "COMPTOIR_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
