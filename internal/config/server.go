package config

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ChannelSpec is one repeatable "Chan" entry: "sta comp net loc bits gain"
// (§6), used to build the wire info line's Names field (Ew2Ws.c).
type ChannelSpec struct {
	Station   string
	Component string
	Network   string
	Location  string
	Bits      int
	Gain      float64
}

// ServerConfig is Program B's line-oriented key/value configuration (§6):
// comments start with '#', "@file" includes another config file in place.
type ServerConfig struct {
	ModuleID     string
	Host         string
	Port         int
	InRing       string
	HeartbeatInt int

	Channels []ChannelSpec

	SocketTimeout   int // ms, default 60000
	NoDataWaitTime  int // seconds
	RestartWaitTime int // seconds
	Debug           int // 0-3
	SendAck         int
	ConsoleDisplay  bool
	ControlCExit    bool
	RefreshTime     int
	CheckStdin      bool
}

const defaultSocketTimeoutMs = 60000

var (
	ErrUnknownConfigKey = fmt.Errorf("config: unknown key")
)

// LoadServerConfig reads path, following any "@file" include directives
// (relative to the including file's directory) before applying defaults
// and checking required keys.
func LoadServerConfig(path string) (*ServerConfig, error) {
	cfg := &ServerConfig{SocketTimeout: defaultSocketTimeoutMs}
	seen := make(map[string]bool)
	if err := loadServerConfigFile(cfg, path, seen); err != nil {
		return nil, err
	}

	var missing []string
	if cfg.ModuleID == "" {
		missing = append(missing, "ModuleId")
	}
	if cfg.Port == 0 {
		missing = append(missing, "Port")
	}
	if cfg.InRing == "" {
		missing = append(missing, "InRing")
	}
	if cfg.HeartbeatInt == 0 {
		missing = append(missing, "HeartbeatInt")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(missing, ", "))
	}

	return cfg, nil
}

func loadServerConfigFile(cfg *ServerConfig, path string, seen map[string]bool) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: resolve %s: %w", path, err)
	}
	if seen[abs] {
		return fmt.Errorf("config: circular @include of %s", abs)
	}
	seen[abs] = true

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if strings.HasPrefix(line, "@") {
			include := filepath.Join(filepath.Dir(path), strings.TrimSpace(line[1:]))
			if err := loadServerConfigFile(cfg, include, seen); err != nil {
				return err
			}
			continue
		}

		fields := strings.Fields(line)
		key := fields[0]
		rest := strings.TrimSpace(strings.TrimPrefix(line, key))

		if err := applyServerKey(cfg, key, rest, fields[1:]); err != nil {
			return fmt.Errorf("config: %s:%d: %w", path, lineNo, err)
		}
	}
	return scanner.Err()
}

func applyServerKey(cfg *ServerConfig, key, rest string, fields []string) error {
	switch key {
	case "ModuleId":
		cfg.ModuleID = rest
	case "Host":
		cfg.Host = rest
	case "Port":
		v, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("Port: %w", err)
		}
		cfg.Port = v
	case "InRing":
		cfg.InRing = rest
	case "HeartbeatInt":
		v, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("HeartbeatInt: %w", err)
		}
		cfg.HeartbeatInt = v
	case "Chan":
		spec, err := parseChanField(fields)
		if err != nil {
			return err
		}
		cfg.Channels = append(cfg.Channels, spec)
	case "SocketTimeout":
		v, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("SocketTimeout: %w", err)
		}
		cfg.SocketTimeout = v
	case "NoDataWaitTime":
		v, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("NoDataWaitTime: %w", err)
		}
		cfg.NoDataWaitTime = v
	case "RestartWaitTime":
		v, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("RestartWaitTime: %w", err)
		}
		cfg.RestartWaitTime = v
	case "Debug":
		v, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("Debug: %w", err)
		}
		cfg.Debug = v
	case "SendAck":
		v, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("SendAck: %w", err)
		}
		cfg.SendAck = v
	case "ConsoleDisplay":
		cfg.ConsoleDisplay = rest == "1"
	case "ControlCExit":
		cfg.ControlCExit = rest == "1"
	case "RefreshTime":
		v, err := strconv.Atoi(rest)
		if err != nil {
			return fmt.Errorf("RefreshTime: %w", err)
		}
		cfg.RefreshTime = v
	case "CheckStdin":
		cfg.CheckStdin = rest == "1"
	default:
		return fmt.Errorf("%w: %s", ErrUnknownConfigKey, key)
	}
	return nil
}

func parseChanField(fields []string) (ChannelSpec, error) {
	if len(fields) != 6 {
		return ChannelSpec{}, fmt.Errorf("Chan: expected 6 fields (sta comp net loc bits gain), got %d", len(fields))
	}
	bits, err := strconv.Atoi(fields[4])
	if err != nil {
		return ChannelSpec{}, fmt.Errorf("Chan: bits: %w", err)
	}
	gain, err := strconv.ParseFloat(fields[5], 64)
	if err != nil {
		return ChannelSpec{}, fmt.Errorf("Chan: gain: %w", err)
	}
	return ChannelSpec{
		Station:   fields[0],
		Component: fields[1],
		Network:   fields[2],
		Location:  fields[3],
		Bits:      bits,
		Gain:      gain,
	}, nil
}
