// Package config reads Program A's winsdr.ini-style main/channel files and
// Program B's line-oriented server config, grounded on
// drf2txt_utils.cpp's GetChannelFileNames/GetChannelInfo/ReadIniFiles
// (§3 "Channel metadata", §6).
package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

const MaxChannels = 12

var (
	ErrTooManyChannels = errors.New("config: number of channels out of range")
	ErrMissingKey      = errors.New("config: required key missing")
)

// ChannelInfo is one channel's entry from the main ini file plus its
// per-channel satellite ini file (§3 "Channel metadata").
type ChannelInfo struct {
	// Name is the channel's FileExtention value — the identifier matched
	// against the CLI's -c filter (§6).
	Name string

	ADCBits       int
	SensorOutVolt float64
	ADInVolt      float64
	ADCGain       float64
}

// VoltsPerCount implements drf2txt.cpp's header formula: the ADC's full-scale
// input range divided by half its code range, or zero when either input is
// unset (§4.3 item 6).
func (c ChannelInfo) VoltsPerCount() float64 {
	if c.ADInVolt == 0 || c.ADCBits == 0 {
		return 0
	}
	halfRange := float64(int64(1)<<uint(c.ADCBits)) / 2
	return c.ADInVolt / halfRange
}

// ExtractConfig is Program A's resolved configuration: the main ini file's
// directory-relative settings plus every channel's metadata.
type ExtractConfig struct {
	SystemNumber   int
	RecordPath     string
	NumberChannels int
	Channels       []ChannelInfo
}

// ChannelIndex returns the 1-based index of the channel named name, or 0 if
// no channel matches (mirrors drf2txt.cpp's channel-filter lookup, §9).
func (c ExtractConfig) ChannelIndex(name string) int {
	for i, ch := range c.Channels {
		if ch.Name == name {
			return i + 1
		}
	}
	return 0
}

// LoadExtractConfig reads mainIniPath (winsdr.ini) and each channel's
// satellite ini file, all resolved relative to configRoot. recordPathOverride,
// when non-empty, takes precedence over the file's RecordPath key (§6 -R).
func LoadExtractConfig(configRoot, mainIniFile, recordPathOverride string) (*ExtractConfig, error) {
	mainPath := filepath.Join(configRoot, mainIniFile)
	main, err := readParams(mainPath)
	if err != nil {
		return nil, err
	}

	numChannels, ok, err := paramInt(main, "NumberChannels=")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: NumberChannels in %s", ErrMissingKey, mainPath)
	}
	if numChannels < 1 || numChannels > MaxChannels {
		return nil, fmt.Errorf("%w: %d (must be 1..%d)", ErrTooManyChannels, numChannels, MaxChannels)
	}

	cfg := &ExtractConfig{NumberChannels: numChannels}

	if recordPathOverride != "" {
		cfg.RecordPath = recordPathOverride
	} else {
		rp, ok := paramString(main, "RecordPath=")
		if !ok {
			return nil, fmt.Errorf("%w: RecordPath in %s", ErrMissingKey, mainPath)
		}
		cfg.RecordPath = rp
	}

	sysNum, ok, err := paramInt(main, "SystemNumber=")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: SystemNumber in %s", ErrMissingKey, mainPath)
	}
	cfg.SystemNumber = sysNum

	cfg.Channels = make([]ChannelInfo, numChannels)
	for i := 0; i < numChannels; i++ {
		key := fmt.Sprintf("ChanFile%d=", i+1)
		chanFile, ok := paramString(main, key)
		if !ok {
			return nil, fmt.Errorf("%w: %s in %s", ErrMissingKey, key, mainPath)
		}

		chanPath := filepath.Join(configRoot, chanFile)
		chanParams, err := readParams(chanPath)
		if err != nil {
			return nil, err
		}

		name, ok := paramString(chanParams, "FileExtention=")
		if !ok {
			return nil, fmt.Errorf("%w: FileExtention in %s", ErrMissingKey, chanPath)
		}

		bits, _, err := paramInt(chanParams, "AdcBits=")
		if err != nil {
			return nil, err
		}
		sensorVolts, _, err := paramFloat(chanParams, "SensorOutVolt=")
		if err != nil {
			return nil, err
		}
		maxInputVolts, _, err := paramFloat(chanParams, "ADInVolt=")
		if err != nil {
			return nil, err
		}
		gain, _, err := paramFloat(chanParams, "AdcGain=")
		if err != nil {
			return nil, err
		}

		cfg.Channels[i] = ChannelInfo{
			Name:          name,
			ADCBits:       bits,
			SensorOutVolt: sensorVolts,
			ADInVolt:      maxInputVolts,
			ADCGain:       gain,
		}
	}

	return cfg, nil
}
