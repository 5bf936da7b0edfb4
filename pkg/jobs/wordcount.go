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
	mustRegister("wordcount", func() Job {
		return &WordCountJob{}
	})
}

var nonWordPattern = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

type WordCountJob struct {
	caseSensitive bool
}

func (wc *WordCountJob) Name() string {
	return "wordcount"
}

func (wc *WordCountJob) Describe() string {
	return "counts occurrences of each word in the input text"
}

func (wc *WordCountJob) Configure(config map[string]string) error {
	if cs, ok := config["case-sensitive"]; ok {
		caseSensitive, err := strconv.ParseBool(cs)
		if err != nil {
			return fmt.Errorf("invalid case-sensitive value %q: %w", cs, err)
		}
		wc.caseSensitive = caseSensitive
	}
	return nil
}

func (wc *WordCountJob) Validate() error {
	return nil
}

func (wc *WordCountJob) Map(line string) ([]core.KeyValue[string, int], error) {
	if !wc.caseSensitive {
		line = strings.ToLower(line)
	}

	var kvs []core.KeyValue[string, int]
	for _, word := range nonWordPattern.Split(line, -1) {
		if word == "" {
			continue
		}
		kvs = append(kvs, core.NewKeyValue(word, 1))
	}
	return kvs, nil
}

// Reduce counts the emitted ones rather than summing them.
func (wc *WordCountJob) Reduce(word string, counts []int) (core.KeyValue[string, int], error) {
	return core.NewKeyValue(word, len(counts)), nil
}

func (wc *WordCountJob) Run(ctx context.Context, records []string, config local.Config) ([]Result, error) {
	return execute(ctx, records, wc, wc, config, strconv.Itoa)
}
