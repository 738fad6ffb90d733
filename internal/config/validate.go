package config

import "dbaccel/internal/dberrors"

func validate(c *Config) error {
	if c.Conn.User == "" {
		return &dberrors.ConfigError{Msg: "--username is required"}
	}
	if c.Conn.Database == "" {
		return &dberrors.ConfigError{Msg: "--database is required"}
	}
	switch c.Action {
	case ActionDump:
		// no extra requirements
	case ActionRestore:
		if c.File == "" {
			return &dberrors.ConfigError{Msg: "--file is required for restore"}
		}
	default:
		return &dberrors.ConfigError{Msg: "--action must be \"dump\" or \"restore\""}
	}
	if c.Jobs <= 0 {
		return &dberrors.ConfigError{Msg: "--jobs must be positive"}
	}
	return nil
}
