package app

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// dsnInfo is a loggable description of a DSN. Passwords are never kept.
type dsnInfo struct {
	Type        string
	Host        string
	Port        int
	User        string
	Name        string
	SSLMode     string
	Path        string
	PasswordSet bool
}

// String renders the DSN without credentials.
func (d dsnInfo) String() string {
	if d.Type == "sqlite" {
		return "sqlite " + d.Path
	}
	return fmt.Sprintf("%s %s@%s:%d/%s", d.Type, d.User, d.Host, d.Port, d.Name)
}

func describeDSN(dsn string) (dsnInfo, error) {
	trimmed := strings.TrimSpace(dsn)
	if trimmed == "" {
		return dsnInfo{}, fmt.Errorf("empty dsn")
	}

	lowered := strings.ToLower(trimmed)
	if strings.HasPrefix(lowered, "file:") {
		pathPart := trimmed[len("file:"):]
		pathPart, _, _ = strings.Cut(pathPart, "?")
		return dsnInfo{Type: "sqlite", Path: strings.TrimSpace(pathPart)}, nil
	}

	u, errParse := url.Parse(trimmed)
	if errParse != nil {
		return dsnInfo{}, fmt.Errorf("parse dsn: %w", errParse)
	}

	var info dsnInfo
	switch strings.ToLower(strings.TrimSpace(u.Scheme)) {
	case "postgres", "postgresql":
		info.Type = "postgres"
		info.Port = 5432
		info.SSLMode = strings.TrimSpace(u.Query().Get("sslmode"))
		if info.SSLMode == "" {
			info.SSLMode = "disable"
		}
	case "mysql":
		info.Type = "mysql"
		info.Port = 3306
	default:
		return dsnInfo{}, fmt.Errorf("unsupported dsn scheme")
	}

	if rawPort := strings.TrimSpace(u.Port()); rawPort != "" {
		parsedPort, errPort := strconv.Atoi(rawPort)
		if errPort != nil {
			return dsnInfo{}, fmt.Errorf("parse port: %w", errPort)
		}
		info.Port = parsedPort
	}
	if u.User != nil {
		info.User = strings.TrimSpace(u.User.Username())
		_, info.PasswordSet = u.User.Password()
	}
	info.Host = strings.TrimSpace(u.Hostname())
	info.Name = strings.TrimSpace(strings.TrimPrefix(u.Path, "/"))
	return info, nil
}
