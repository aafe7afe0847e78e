package config

import (
	"os"
	"testing"

	"github.com/spf13/viper"

	"synnergy-statedb/internal/testutil"
)

func TestLoadConfigDefault(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(".."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")
	if AppConfig.Database.BaseRowFee != 200 {
		t.Fatalf("unexpected base row fee: %d", AppConfig.Database.BaseRowFee)
	}
	if AppConfig.Database.MaxIteratorCache != 4096 {
		t.Fatalf("unexpected max iterator cache: %d", AppConfig.Database.MaxIteratorCache)
	}
}

func TestLoadConfigOverride(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(".."); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("bootstrap")
	if AppConfig.Database.MaxIteratorCache != 8192 {
		t.Fatalf("expected MaxIteratorCache 8192, got %d", AppConfig.Database.MaxIteratorCache)
	}
	if AppConfig.VM.GasLimit != 20000000 {
		t.Fatalf("expected gas limit override")
	}
	// Values absent from the override file must survive the merge.
	if AppConfig.Database.BaseRowFee != 200 {
		t.Fatalf("expected base row fee to survive merge, got %d", AppConfig.Database.BaseRowFee)
	}
}

func TestLoadConfigSandbox(t *testing.T) {
	sb, err := testutil.NewSandbox()
	if err != nil {
		t.Fatalf("NewSandbox failed: %v", err)
	}
	defer sb.Cleanup()

	if err := os.Mkdir(sb.Path("config"), 0700); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	data := []byte("database:\n  base_row_fee: 50\n  max_iterator_cache: 10\n")
	if err := sb.WriteFile("config/default.yaml", data, 0600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd failed: %v", err)
	}
	defer os.Chdir(wd)
	viper.Reset()

	if err := os.Chdir(sb.Root); err != nil {
		t.Fatalf("chdir failed: %v", err)
	}
	LoadConfig("")

	if AppConfig.Database.BaseRowFee != 50 {
		t.Fatalf("expected base row fee 50, got %d", AppConfig.Database.BaseRowFee)
	}
	if AppConfig.Database.MaxIteratorCache != 10 {
		t.Fatalf("expected max iterator cache 10, got %d", AppConfig.Database.MaxIteratorCache)
	}
}
