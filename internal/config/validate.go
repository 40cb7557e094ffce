package config

import (
	"errors"
	"fmt"
	"strconv"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	port, err := strconv.Atoi(c.Server.Port)
	if err != nil || port < 1 || port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %q", c.Server.Port)
	}
	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be > 0")
	}

	if err := c.Table.validate(); err != nil {
		return err
	}

	switch c.Table.Backend {
	case BackendMemory:
	case BackendSheets:
		if c.Sheets.URL == "" {
			return errors.New("sheets.url is required for the sheets backend")
		}
		if c.Sheets.Credentials == "" {
			return errors.New("sheets.credentials is required for the sheets backend")
		}
	case BackendPostgres:
		if c.Database.Host == "" {
			return errors.New("database.host is required for the postgres backend")
		}
		if c.Database.DBName == "" {
			return errors.New("database.name is required for the postgres backend")
		}
	default:
		return fmt.Errorf("table.backend must be one of %s, %s or %s, got %q",
			BackendMemory, BackendSheets, BackendPostgres, c.Table.Backend)
	}

	if c.Redis.Addr != "" {
		if c.Redis.LockKey == "" {
			return errors.New("redis.lock_key is required")
		}
		if c.Redis.LockTTL <= 0 {
			return errors.New("redis.lock_ttl must be > 0")
		}
	}

	if len(c.Kafka.Brokers) > 0 {
		if c.Kafka.Topic == "" && c.Kafka.TradeTopic == "" {
			return errors.New("kafka.topic or kafka.trade_topic is required when brokers are set")
		}
		if c.Kafka.TradeTopic != "" && c.Kafka.GroupID == "" {
			return errors.New("kafka.group_id is required to consume kafka.trade_topic")
		}
	}

	return nil
}

func (t *TableConfig) validate() error {
	if t.Name == "" {
		return errors.New("table.name is required")
	}
	if t.KeyColumn == "" {
		return errors.New("table.key_column is required")
	}
	if t.DateColumn == "" {
		return errors.New("table.date_column is required")
	}
	if t.KeyColumn == t.DateColumn {
		return fmt.Errorf("table.key_column and table.date_column must differ, both are %q", t.KeyColumn)
	}
	if t.ResultColumn == "" {
		return errors.New("table.result_column is required")
	}
	return nil
}
