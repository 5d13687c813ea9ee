package cmd

import (
	"context"
	"fmt"
	"io"

	"github.com/pairomaniac/capture-stream/internal/capability"
	"github.com/pairomaniac/capture-stream/internal/devices"
	"github.com/pairomaniac/capture-stream/internal/diagnostics"
	"github.com/pairomaniac/capture-stream/internal/probe"
	"github.com/pairomaniac/capture-stream/internal/version"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type deviceReport struct {
	Build        version.Info                  `yaml:"build"`
	Session      sessionReport                 `yaml:"session"`
	Video        []videoReport                 `yaml:"video"`
	Audio        []audioReport                 `yaml:"audio"`
	Dependencies *diagnostics.DependencyReport `yaml:"dependencies,omitempty"`
}

type sessionReport struct {
	Type        string `yaml:"type"`
	Desktop     string `yaml:"desktop"`
	RuleBackend string `yaml:"rule_backend"`
}

type videoReport struct {
	devices.Endpoint `yaml:",inline"`
	Formats          []formatReport `yaml:"formats"`
}

type formatReport struct {
	Format string   `yaml:"format"`
	Modes  []string `yaml:"modes"`
}

type audioReport struct {
	devices.Endpoint `yaml:",inline"`
	CaptureCard      bool `yaml:"capture_card"`
}

// CreateDevicesCmd creates the devices command.
func CreateDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "Print detected capture devices, formats and modes as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceUsage = true
			a, err := newApp()
			if err != nil {
				return err
			}

			prober := probe.New()
			report, err := buildDeviceReport(cmd.Context(), devices.NewCatalog(prober), capability.NewResolver(prober))
			if err != nil {
				return err
			}
			report.Build = version.Get()
			report.Session = sessionReport{
				Type:        a.session.Type,
				Desktop:     a.session.Desktop,
				RuleBackend: string(a.session.RuleBackend()),
			}
			deps := diagnostics.DetectDependencies(
				diagnostics.RequiredBinaries(a.session, a.opts.PlayerBinary, a.opts.PromptBinary))
			report.Dependencies = &deps
			return writeYAML(cmd.OutOrStdout(), report)
		},
	}
}

// buildDeviceReport lists every device with its allow-listed modes per
// format. Formats without allowed modes are listed with no modes.
func buildDeviceReport(ctx context.Context, catalog *devices.Catalog, resolver *capability.Resolver) (deviceReport, error) {
	var report deviceReport

	videos, err := catalog.ListVideoDevices(ctx)
	if err != nil {
		return report, err
	}
	for _, v := range videos {
		formats, err := resolver.ListFormats(ctx, v.Identifier)
		if err != nil {
			return report, err
		}
		entry := videoReport{Endpoint: v, Formats: []formatReport{}}
		for _, format := range formats {
			fr := formatReport{Format: format, Modes: []string{}}
			modes, err := resolver.ListModes(ctx, v.Identifier, format)
			if err != nil && ctx.Err() != nil {
				return report, err
			}
			for _, m := range modes {
				fr.Modes = append(fr.Modes, fmt.Sprintf("%s@%d", m.Resolution, m.FPS))
			}
			entry.Formats = append(entry.Formats, fr)
		}
		report.Video = append(report.Video, entry)
	}

	audios, err := catalog.ListAllAudioDevices(ctx)
	if err != nil {
		return report, err
	}
	for _, e := range audios {
		report.Audio = append(report.Audio, audioReport{
			Endpoint:    e,
			CaptureCard: devices.KnownCaptureCard.MatchString(e.Description),
		})
	}
	return report, nil
}

func writeYAML(out io.Writer, v any) error {
	enc := yaml.NewEncoder(out)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return enc.Close()
}
