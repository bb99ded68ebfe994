package api

import (
	"os"
	"path/filepath"

	"github.com/cribo/cribo/internal/bundler"
	"github.com/cribo/cribo/internal/config"
	"github.com/cribo/cribo/internal/fs"
	"github.com/cribo/cribo/internal/logger"
)

func validateLogLevel(level LogLevel) logger.LogLevel {
	switch level {
	case LogLevelInfo:
		return logger.LevelInfo
	case LogLevelWarning:
		return logger.LevelWarning
	case LogLevelError:
		return logger.LevelError
	default:
		return logger.LevelSilent
	}
}

func validateColor(color StderrColor) logger.StderrColor {
	switch color {
	case ColorNever:
		return logger.ColorNever
	case ColorAlways:
		return logger.ColorAlways
	default:
		return logger.ColorIfTerminal
	}
}

func convertMessages(msgs []logger.Msg, kind logger.MsgKind) []Message {
	var filtered []Message
	for _, msg := range msgs {
		if msg.Kind != kind {
			continue
		}
		converted := Message{Text: msg.Text}
		if msg.Location != nil {
			converted.Location = &Location{
				File:   msg.Location.File,
				Line:   msg.Location.Line,
				Column: msg.Location.Column,
				Length: msg.Location.Length,
			}
		}
		filtered = append(filtered, converted)
	}
	return filtered
}

func buildImpl(options BuildOptions) BuildResult {
	log := logger.NewStderrLog(logger.StderrOptions{
		IncludeSource: true,
		Color:         validateColor(options.Color),
		LogLevel:      validateLogLevel(options.LogLevel),
	})

	configOptions := config.Options{
		PythonVersion:    uint16(options.PythonVersion),
		TreeShake:        options.TreeShake,
		EmitRequirements: options.EmitRequirements,
		SourceRoots:      options.SourceRoots,
		AbsOutputFile:    options.Outfile,
	}

	bundled, err := bundler.Bundle(fs.RealFS(), log, &configOptions, options.EntryPoint)
	if err != nil && !log.HasErrors() {
		log.AddError(nil, logger.SyntheticLoc, err.Error())
	}

	msgs := log.Done()
	result := BuildResult{
		Errors:   convertMessages(msgs, logger.Error),
		Warnings: convertMessages(msgs, logger.Warning),
	}
	if len(result.Errors) > 0 {
		return result
	}

	result.Code = bundled.Code
	result.Requirements = bundler.RequirementsText(bundled.Requirements)
	result.NodesCreated = bundled.NodesCreated
	result.Transformations = bundled.Transformations

	if options.Outfile != "" {
		if err := os.WriteFile(options.Outfile, []byte(result.Code), 0644); err != nil {
			result.Errors = append(result.Errors, Message{Text: "cannot write output file: " + err.Error()})
			return result
		}
		if options.EmitRequirements && result.Requirements != "" {
			path := filepath.Join(filepath.Dir(options.Outfile), "requirements.txt")
			if err := os.WriteFile(path, []byte(result.Requirements), 0644); err != nil {
				result.Errors = append(result.Errors, Message{Text: "cannot write requirements file: " + err.Error()})
			}
		}
	}
	return result
}
