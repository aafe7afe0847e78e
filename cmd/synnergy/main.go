package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/wasmerio/wasmer-go/wasmer"

	"synnergy-statedb/core"
	pkgconfig "synnergy-statedb/pkg/config"
)

func main() {
	rootCmd := &cobra.Command{Use: "synnergy-statedb"}
	rootCmd.AddCommand(deployCmd())
	rootCmd.AddCommand(invokeCmd())
	rootCmd.AddCommand(sandboxCmd())
	if err := rootCmd.Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func openRegistry(env string) (*core.ContractRegistry, *core.Ledger, error) {
	cfg, err := pkgconfig.Load(env)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	led, err := core.OpenLedger(cfg.Storage.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open ledger: %w", err)
	}
	vm := core.NewHeavyVM(led, core.NewGasMeter(cfg.VM.GasLimit), wasmer.NewEngine())
	reg := core.NewContractRegistry(led, vm, cfg.Database.MaxIteratorCache, cfg.Database.CheckTimeInstructions)
	return reg, led, nil
}

func deployCmd() *cobra.Command {
	var env, wasmPath string
	var gas uint64
	cmd := &cobra.Command{
		Use:   "deploy [creator-hex]",
		Short: "deploy a wasm contract and print its derived address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			creatorBytes, err := hex.DecodeString(args[0])
			if err != nil || len(creatorBytes) != 20 {
				return fmt.Errorf("creator must be a 20-byte hex address")
			}
			var creator core.Address
			copy(creator[:], creatorBytes)

			code, err := os.ReadFile(wasmPath)
			if err != nil {
				return fmt.Errorf("read wasm: %w", err)
			}

			reg, led, err := openRegistry(env)
			if err != nil {
				return err
			}
			defer led.Close()

			addr := core.DeriveContractAddress(creator, code)
			if err := reg.Deploy(addr, code, nil, gas); err != nil {
				return fmt.Errorf("deploy: %w", err)
			}
			fmt.Println(addr.Hex())
			return nil
		},
	}
	cmd.Flags().StringVar(&env, "env", "default", "config environment to load")
	cmd.Flags().StringVar(&wasmPath, "wasm", "", "path to a compiled .wasm module")
	cmd.Flags().Uint64Var(&gas, "gas", 1_000_000, "gas limit for the deployed contract")
	cmd.MarkFlagRequired("wasm")
	return cmd
}

func invokeCmd() *cobra.Command {
	var env string
	var gas uint64
	cmd := &cobra.Command{
		Use:   "invoke [caller-hex] [contract-hex]",
		Short: "invoke a deployed contract's run entrypoint",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			caller, err := parseAddress(args[0])
			if err != nil {
				return err
			}
			target, err := parseAddress(args[1])
			if err != nil {
				return err
			}

			reg, led, err := openRegistry(env)
			if err != nil {
				return err
			}
			defer led.Close()

			rec, err := reg.InvokeWithReceipt(caller, target, "run", nil, gas)
			if err != nil {
				return fmt.Errorf("invoke: %w", err)
			}
			fmt.Printf("status=%v gas_used=%d host_calls=%d\n", rec.Status, rec.GasUsed, rec.HostCalls)
			for _, l := range rec.Logs {
				fmt.Printf("log[%s]: %s\n", l.Address.Hex(), l.Data)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&env, "env", "default", "config environment to load")
	cmd.Flags().Uint64Var(&gas, "gas", 0, "gas limit override (0 uses the contract's deployed limit)")
	return cmd
}

func sandboxCmd() *cobra.Command {
	var env string
	var memLimit, cpuLimit uint64
	cmd := &cobra.Command{
		Use:   "sandbox [start|stop|status] [contract-hex]",
		Short: "manage a contract's sandbox resource envelope",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseAddress(args[1])
			if err != nil {
				return err
			}
			reg, led, err := openRegistry(env)
			if err != nil {
				return err
			}
			defer led.Close()

			sb := reg.Sandboxes()
			switch args[0] {
			case "start":
				return sb.Start(target, memLimit, cpuLimit)
			case "stop":
				return sb.Stop(target)
			case "status":
				info, ok := sb.Status(target)
				if !ok {
					fmt.Println("no sandbox recorded")
					return nil
				}
				fmt.Printf("active=%v mem_limit=%d cpu_limit=%d started=%s\n", info.Active, info.MemoryLimit, info.CPULimit, info.Started)
				return nil
			default:
				return fmt.Errorf("unknown sandbox subcommand %q", args[0])
			}
		},
	}
	cmd.Flags().StringVar(&env, "env", "default", "config environment to load")
	cmd.Flags().Uint64Var(&memLimit, "mem-limit", 0, "memory page limit for start")
	cmd.Flags().Uint64Var(&cpuLimit, "cpu-limit", 0, "gas/cpu limit for start")
	return cmd
}

func parseAddress(s string) (core.Address, error) {
	b, err := hex.DecodeString(s)
	if err != nil || len(b) != 20 {
		return core.Address{}, fmt.Errorf("%q is not a 20-byte hex address", s)
	}
	var a core.Address
	copy(a[:], b)
	return a, nil
}
