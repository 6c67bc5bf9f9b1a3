package toolchain_test

import (
	"os"
	"testing"

	"gopkg.in/yaml.v3"

	"aves/internal/testkit"
	"aves/internal/toolchain"
)

// The engine scenarios double as a round-trip corpus.
func TestEngineScenariosRoundTrip(t *testing.T) {
	data, err := os.ReadFile("../vm/testdata/scenarios.yaml")
	if err != nil {
		t.Fatalf("read scenarios: %v", err)
	}
	var scenarios []struct {
		Name    string `yaml:"name"`
		Program string `yaml:"program"`
	}
	if err := yaml.Unmarshal(data, &scenarios); err != nil {
		t.Fatalf("decode scenarios: %v", err)
	}
	for _, sc := range scenarios {
		t.Run(sc.Name, func(t *testing.T) {
			p := testkit.MustParse(t, sc.Program)
			testkit.AssertRoundTrips(t, p)
			if err := toolchain.RoundTrip(testkit.MustEncode(t, p)); err != nil {
				t.Fatalf("RoundTrip: %v", err)
			}
		})
	}
}
