package options

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// SkillsOptions configure the skill sources loaded on top of the core tools.
type SkillsOptions struct {
	// Dir holds declarative skill manifests (*.yaml, *.yml, *.json).
	Dir string `json:"dir" mapstructure:"dir"`
	// Watch reloads the registry when Dir changes.
	Watch    bool          `json:"watch" mapstructure:"watch"`
	Debounce time.Duration `json:"debounce" mapstructure:"debounce"`
	// MCPConfigFile lists external MCP servers whose tools are imported.
	MCPConfigFile string `json:"mcp-config-file" mapstructure:"mcp-config-file"`
	// Segments maps a business segment to its companies, e.g. ATACADO=1+5+7.
	Segments map[string]string `json:"segments" mapstructure:"segments"`
}

func NewSkillsOptions() *SkillsOptions {
	return &SkillsOptions{
		Dir:           "skills",
		Watch:         true,
		Debounce:      500 * time.Millisecond,
		MCPConfigFile: "conf/mcp.json",
		Segments:      map[string]string{"ATACADO": "1+5+7", "INDUSTRIA": "2+6"},
	}
}

func (o *SkillsOptions) Validate() []error {
	var errs []error
	if o.Debounce < 0 {
		errs = append(errs, errors.New("skills.debounce must not be negative"))
	}
	for name, ids := range o.Segments {
		if strings.TrimSpace(name) == "" || strings.Trim(ids, "+ ") == "" {
			errs = append(errs, fmt.Errorf("skills.segments: %q=%q needs a name and at least one company", name, ids))
		}
	}
	return errs
}

func (o *SkillsOptions) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.Dir, "skills.dir", o.Dir, "Directory of declarative skill manifests.")
	fs.BoolVar(&o.Watch, "skills.watch", o.Watch, "Reload tools when the skills directory changes.")
	fs.DurationVar(&o.Debounce, "skills.debounce", o.Debounce, "Quiet period before a watched change triggers a reload.")
	fs.StringVar(&o.MCPConfigFile, "skills.mcp-config-file", o.MCPConfigFile,
		"Path to mcp.json listing external MCP servers; a missing file imports nothing.")
	fs.StringToStringVar(&o.Segments, "skills.segments", o.Segments,
		"Business segments of the group for the sales and finance lenses, as NAME=1+5+7.")
}
