package cmd

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/disiqueira/gotree"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/gleber/rebar3-nix-bootstrap/pkg/bootstrap"
	"github.com/gleber/rebar3-nix-bootstrap/pkg/linker"
	"github.com/gleber/rebar3-nix-bootstrap/pkg/prettyprint"
)

// treeFormat prints the plan as a tree. It is the default for describe.
const treeFormat prettyprint.Format = "tree"

const defaultPlanTemplate = `Registry:{{"\t"}}{{ .Registry.Path }} -> {{ .Registry.Snapshot }}
{{ if .RebarConfig }}rebar.config:{{"\t"}}{{ .RebarConfig.Path }}
{{ end -}}
{{ if .AppSrc }}Descriptor:{{"\t"}}{{ .AppSrc.Path }}
{{ end -}}
{{ if .Lockfile }}Lockfile:{{"\t"}}{{ .Lockfile.Path }}
{{- range .Lockfile.Entries }}
{{"\t"}}{{ .AppName }}{{"\t"}}{{ .PkgName }}{{"\t"}}{{ .Version }}
{{- end }}
{{ end -}}
{{ if .Plugins }}Plugins:
{{- range .Plugins }}
{{"\t"}}{{ .Name }}{{"\t"}}{{ .Source }}
{{- end }}
{{ end -}}
{{ if .Libraries }}Libraries:
{{- range .Libraries }}
{{"\t"}}{{ .Name }}{{"\t"}}{{ .Source }}
{{- end }}
{{ end -}}
`

// describeCmd represents the describe command
var describeCmd = &cobra.Command{
	Use:   "describe [registry-only]",
	Short: "Describes what a bootstrap run would change without changing anything",
	Args:  cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfig(args)
		if err != nil {
			return err
		}

		plan, err := bootstrap.NewPlan(cfg)
		if err != nil {
			return err
		}
		log.WithField("registryOnly", cfg.RegistryOnly).Debug("computed plan")

		w := getWriterFromFlags(cmd)
		switch w.Format {
		case treeFormat:
			return printPlanTree(w.Out, cfg.ProjectDir, plan)
		case prettyprint.TemplateFormat:
			if w.FormatString == "" {
				w.FormatString = defaultPlanTemplate
			}
		}
		return w.Write(plan)
	},
}

func printPlanTree(out io.Writer, projectDir string, plan *bootstrap.Plan) error {
	rel := func(fn string) string {
		r, err := filepath.Rel(projectDir, fn)
		if err != nil {
			return fn
		}
		return r
	}
	addLinks := func(parent gotree.Tree, dir string, links []linker.Link) {
		if len(links) == 0 {
			return
		}
		n := parent.Add(rel(dir))
		for _, l := range links {
			n.Add(fmt.Sprintf("%s -> %s", l.Name, l.Source))
		}
	}

	tree := gotree.New(projectDir)
	tree.Add(fmt.Sprintf("registry: %s -> %s", plan.Registry.Path, plan.Registry.Snapshot))
	if plan.RebarConfig != nil {
		tree.Add(rel(plan.RebarConfig.Path))
	}
	if plan.AppSrc != nil {
		tree.Add(rel(plan.AppSrc.Path))
	}
	if plan.Lockfile != nil {
		n := tree.Add(rel(plan.Lockfile.Path))
		for _, e := range plan.Lockfile.Entries {
			n.Add(fmt.Sprintf("%s (%s %s)", e.AppName, e.PkgName, e.Version))
		}
	}
	addLinks(tree, plan.PluginsDir, plan.Plugins)
	addLinks(tree, plan.LibDir, plan.Libraries)

	_, err := fmt.Fprintln(out, tree.Print())
	return err
}

func addFormatFlags(cmd *cobra.Command, defaultFormat prettyprint.Format) {
	cmd.Flags().String("format", string(defaultFormat), "the description format. Valid choices are: tree, template, json or yaml")
	cmd.Flags().StringP("format-string", "t", "", "format string to use, e.g. the template")
}

func getWriterFromFlags(cmd *cobra.Command) *prettyprint.Writer {
	format, _ := cmd.Flags().GetString("format")
	formatString, _ := cmd.Flags().GetString("format-string")
	return &prettyprint.Writer{
		Out:          cmd.OutOrStdout(),
		Format:       prettyprint.Format(format),
		FormatString: formatString,
	}
}

func init() {
	rootCmd.AddCommand(describeCmd)
	addFormatFlags(describeCmd, treeFormat)
}
