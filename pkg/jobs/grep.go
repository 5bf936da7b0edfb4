package jobs

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nemanja-m/memr/pkg/core"
	"github.com/nemanja-m/memr/pkg/local"
)

func init() {
	mustRegister("grep", func() Job {
		return &GrepJob{}
	})
}

// GrepJob keeps lines matching a pattern and counts how often each of them occurs.
type GrepJob struct {
	pattern *regexp.Regexp
}

func (g *GrepJob) Name() string {
	return "grep"
}

func (g *GrepJob) Describe() string {
	return "searches for lines matching a specified pattern"
}

func (g *GrepJob) Configure(config map[string]string) error {
	var expr string
	if p, ok := config["pattern"]; ok && p != "" {
		expr = p
	} else {
		return fmt.Errorf("pattern must be specified in the job configuration")
	}

	if cs, ok := config["case-sensitive"]; ok {
		caseSensitive, err := strconv.ParseBool(cs)
		if err != nil {
			return fmt.Errorf("invalid case-sensitive value %q: %w", cs, err)
		}
		if !caseSensitive {
			expr = "(?i)" + expr
		}
	}

	pattern, err := regexp.Compile(expr)
	if err != nil {
		return fmt.Errorf("invalid regex pattern: %w", err)
	}
	g.pattern = pattern
	return nil
}

func (g *GrepJob) Validate() error {
	if g.pattern == nil {
		return fmt.Errorf("pattern must be specified in the job configuration")
	}
	return nil
}

func (g *GrepJob) Map(line string) ([]core.KeyValue[string, int], error) {
	if g.pattern.MatchString(line) {
		return []core.KeyValue[string, int]{core.NewKeyValue(strings.TrimSpace(line), 1)}, nil
	}
	return nil, nil
}

func (g *GrepJob) Reduce(line string, matches []int) (core.KeyValue[string, int], error) {
	return core.NewKeyValue(line, len(matches)), nil
}

func (g *GrepJob) Run(ctx context.Context, records []string, config local.Config) ([]Result, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return execute(ctx, records, g, g, config, strconv.Itoa)
}
