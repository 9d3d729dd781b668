package config

import (
	"github.com/churnwatch/churnwatch/pkg/database"
)

func (d DatabaseConfig) ToDBConfig() database.Config {
	return database.Config{
		Host:            d.Host,
		Port:            d.Port,
		Name:            d.Name,
		User:            d.User,
		Password:        d.Password,
		MaxConnections:  d.MaxConnections,
		SSLMode:         d.SSLMode,
		ConnMaxLifetime: d.ConnMaxLifetime,
		ConnMaxIdleTime: d.ConnMaxIdleTime,
		PingTimeout:     d.PingTimeout,
	}
}
