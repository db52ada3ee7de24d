package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/seismicdata/drf-fanout/internal/config"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadExtractConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "winsdr.ini", "NumberChannels=2\nChanFile1=ch1.ini\nChanFile2=ch2.ini\nRecordPath=/data/record\nSystemNumber=3\n")
	writeFile(t, dir, "ch1.ini", "FileExtention=CH1\nAdcBits=24\nSensorOutVolt=20.0\nADInVolt=5.0\nAdcGain=1.0\n")
	writeFile(t, dir, "ch2.ini", "FileExtention=CH2\nAdcBits=24\nSensorOutVolt=20.0\nADInVolt=5.0\nAdcGain=1.0\n")

	cfg, err := config.LoadExtractConfig(dir, "winsdr.ini", "")
	require.NoError(t, err)
	require.Equal(t, 3, cfg.SystemNumber)
	require.Equal(t, "/data/record", cfg.RecordPath)
	require.Len(t, cfg.Channels, 2)
	require.Equal(t, "CH2", cfg.Channels[1].Name)
	require.Equal(t, 2, cfg.ChannelIndex("CH2"))
	require.Equal(t, 0, cfg.ChannelIndex("CH9"))
}

func TestLoadExtractConfigRecordPathOverride(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "winsdr.ini", "NumberChannels=1\nChanFile1=ch1.ini\nSystemNumber=1\n")
	writeFile(t, dir, "ch1.ini", "FileExtention=CH1\nAdcBits=16\nSensorOutVolt=10\nADInVolt=2.5\nAdcGain=1\n")

	cfg, err := config.LoadExtractConfig(dir, "winsdr.ini", "/override")
	require.NoError(t, err)
	require.Equal(t, "/override", cfg.RecordPath)
}

func TestChannelInfoVoltsPerCount(t *testing.T) {
	t.Parallel()
	c := config.ChannelInfo{ADCBits: 16, ADInVolt: 5.0}
	require.InDelta(t, 5.0/32768.0, c.VoltsPerCount(), 1e-12)

	zero := config.ChannelInfo{}
	require.Equal(t, 0.0, zero.VoltsPerCount())
}

func TestLoadServerConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	writeFile(t, dir, "channels.conf", "# channel list\nChan STA1 HHZ NET LOC 24 1.0\nChan STA1 HHN NET LOC 24 1.0\n")
	writeFile(t, dir, "server.conf", "ModuleId M1\nHost\nPort 16000\nInRing RING_A\nHeartbeatInt 5\n@channels.conf\nSocketTimeout 5000\n")

	cfg, err := config.LoadServerConfig(filepath.Join(dir, "server.conf"))
	require.NoError(t, err)
	require.Equal(t, "M1", cfg.ModuleID)
	require.Equal(t, 16000, cfg.Port)
	require.Equal(t, "RING_A", cfg.InRing)
	require.Equal(t, 5, cfg.HeartbeatInt)
	require.Equal(t, 5000, cfg.SocketTimeout)
	require.Len(t, cfg.Channels, 2)
	require.Equal(t, "HHN", cfg.Channels[1].Component)
}

func TestLoadServerConfigMissingRequiredKey(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := writeFile(t, dir, "server.conf", "ModuleId M1\nPort 16000\n")
	_, err := config.LoadServerConfig(path)
	require.Error(t, err)
}

func TestEnvOverlayValidate(t *testing.T) {
	t.Parallel()
	ok := config.EnvOverlay{LogLevel: config.LogLevelInfo}
	require.NoError(t, ok.Validate())

	bad := config.EnvOverlay{LogLevel: "bogus"}
	require.ErrorIs(t, bad.Validate(), config.ErrInvalidLogLevel)

	badMetrics := config.EnvOverlay{LogLevel: config.LogLevelInfo, Metrics: config.Metrics{Enabled: true, Port: -1, Bind: "x"}}
	require.ErrorIs(t, badMetrics.Validate(), config.ErrInvalidMetricsPort)
}
