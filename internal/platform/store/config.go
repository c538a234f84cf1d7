package store

import (
	"fmt"
	"net/url"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"syncfabric/internal/platform/config"
)

// BackendConfig holds connection inputs for one backend
type BackendConfig struct {
	Host     string
	Port     int
	DB       string
	User     string
	Password string
}

// Config aggregates per-backend settings plus pool knobs
type Config struct {
	// Control names the backend holding conflicts and admin users
	Control Tag

	Backends map[Tag]BackendConfig

	MaxOpenConns int
	MaxIdleConns int
	ConnLifetime time.Duration

	// ConnectRetries bounds the ping backoff when a pool first opens
	ConnectRetries uint64
}

// ConfigFromEnv assembles the registry config from MYSQL_/POSTGRES_/MSSQL_
// scoped env vars plus CONTROL_DB. Defaults mirror the docker-compose dev rig.
func ConfigFromEnv(root config.Conf) (Config, error) {
	control, err := ParseTag(root.MayString("CONTROL_DB", "postgres"))
	if err != nil {
		return Config{}, err
	}

	read := func(prefix, host string, port int, user, pw string) BackendConfig {
		c := root.Prefix(prefix)
		return BackendConfig{
			Host:     c.MayString("HOST", host),
			Port:     c.MayInt("PORT", port),
			DB:       c.MayString("DB", "syncdb"),
			User:     c.MayString("USER", user),
			Password: c.MayString("PASSWORD", pw),
		}
	}

	return Config{
		Control: control,
		Backends: map[Tag]BackendConfig{
			MySQL:    read("MYSQL_", "mysql", 3306, "app", "app_pw"),
			Postgres: read("POSTGRES_", "postgres", 5432, "app", "app_pw"),
			MSSQL:    read("MSSQL_", "mssql", 1433, "sa", "YourStrong!Passw0rd"),
		},
		MaxOpenConns:   root.MayInt("DB_MAX_OPEN_CONNS", 8),
		MaxIdleConns:   root.MayInt("DB_MAX_IDLE_CONNS", 4),
		ConnLifetime:   time.Duration(root.MayInt("DB_CONN_LIFETIME_SECONDS", 1800)) * time.Second,
		ConnectRetries: uint64(root.MayInt("DB_CONNECT_RETRIES", 5)),
	}, nil
}

// driverName returns the database/sql driver registered for the tag
func driverName(tag Tag) string {
	switch tag {
	case Postgres:
		return "pgx"
	case MSSQL:
		return "sqlserver"
	default:
		return "mysql"
	}
}

// dsn builds the driver-specific connection string
func dsn(tag Tag, bc BackendConfig) string {
	switch tag {
	case Postgres:
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s",
			url.QueryEscape(bc.User), url.QueryEscape(bc.Password), bc.Host, bc.Port, bc.DB)
	case MSSQL:
		// TrustServerCertificate avoids TLS friction with the dev container
		q := url.Values{}
		q.Set("database", bc.DB)
		q.Set("TrustServerCertificate", "true")
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(bc.User, bc.Password),
			Host:     fmt.Sprintf("%s:%d", bc.Host, bc.Port),
			RawQuery: q.Encode(),
		}
		return u.String()
	default:
		mc := gomysql.NewConfig()
		mc.User = bc.User
		mc.Passwd = bc.Password
		mc.Net = "tcp"
		mc.Addr = fmt.Sprintf("%s:%d", bc.Host, bc.Port)
		mc.DBName = bc.DB
		mc.ParseTime = true
		mc.Loc = time.UTC
		mc.Params = map[string]string{"charset": "utf8mb4"}
		return mc.FormatDSN()
	}
}
