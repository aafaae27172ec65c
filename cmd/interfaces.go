package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"netifmgr/internal/adapter/api"
	"netifmgr/internal/pkg/addrcodec"
	"netifmgr/internal/types"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

const requestTimeout = 60 * time.Second

var (
	outputFlag  string
	nameFlag    string
	dhcpFlag    bool
	ipFlag      string
	maskFlag    string
	gatewayFlag string
)

func newClient() *api.Client {
	return api.NewClient(serverFlag, api.WithTimeout(requestTimeout))
}

// normalizeMask accepts a dotted mask or a prefix ("/24" or "24").
func normalizeMask(s string) (string, error) {
	if s == "" || !addrcodec.LooksLikePrefixInput(s) {
		return s, nil
	}
	p, err := addrcodec.ParsePrefixInput(s)
	if err != nil {
		return "", err
	}
	return addrcodec.PrefixLengthToMask(p)
}

// addressFlags returns method, ip, mask and gateway from the command flags.
func addressFlags() (string, string, string, string, error) {
	if dhcpFlag {
		if ipFlag != "" || maskFlag != "" || gatewayFlag != "" {
			return "", "", "", "", fmt.Errorf("--dhcp cannot be combined with --ip, --mask or --gateway")
		}
		return string(types.MethodDHCP), "", "", "", nil
	}
	if ipFlag == "" || maskFlag == "" {
		return "", "", "", "", fmt.Errorf("either --dhcp or both --ip and --mask are required")
	}
	mask, err := normalizeMask(maskFlag)
	if err != nil {
		return "", "", "", "", err
	}
	return string(types.MethodStatic), ipFlag, mask, gatewayFlag, nil
}

func renderInterfaces(w io.Writer, hw []types.HardwareInterface, output string) error {
	if output == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(hw)
	}

	writer := table.NewWriter()
	writer.AppendHeader(table.Row{"device", "name", "mac", "active", "logic", "method", "address", "gateway"})
	for _, h := range hw {
		if len(h.LogicInterfaces) == 0 {
			writer.AppendRow(table.Row{h.Device, h.Name, h.Mac, h.IsActive, "", "", "", ""})
			continue
		}
		for _, l := range h.LogicInterfaces {
			address := ""
			if l.IP != "" {
				if cidr, err := addrcodec.FormatCIDR(l.IP, l.Mask); err == nil {
					address = cidr
				} else {
					address = l.IP + "/" + l.Mask
				}
			}
			writer.AppendRow(table.Row{h.Device, h.Name, h.Mac, h.IsActive, l.Name, l.Method, address, l.Gateway})
		}
	}
	_, err := fmt.Fprintln(w, writer.Render())
	return err
}

func printLogicInterface(w io.Writer, l types.LogicInterface) {
	fmt.Fprintf(w, "%s on %s: %s (id %s)\n", l.Name, l.Device, l.Config(), l.ID)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List hardware interfaces and their logical interfaces",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		hw, err := newClient().ListInterfaces(cmd.Context())
		if err != nil {
			return err
		}
		return renderInterfaces(cmd.OutOrStdout(), hw, outputFlag)
	},
}

var addCmd = &cobra.Command{
	Use:   "add <device> <name>",
	Short: "Add a logical interface to a hardware interface",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		method, ip, mask, gateway, err := addressFlags()
		if err != nil {
			return err
		}
		created, err := newClient().AddLogicInterface(cmd.Context(), types.AddPayload{
			Device: args[0], Name: args[1], Method: method, IP: ip, Mask: mask, Gateway: gateway,
		})
		if err != nil {
			return err
		}
		printLogicInterface(cmd.OutOrStdout(), created)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update <name>",
	Short: "Reconfigure, and optionally rename, a logical interface",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		method, ip, mask, gateway, err := addressFlags()
		if err != nil {
			return err
		}
		updated, err := newClient().UpdateLogicInterface(cmd.Context(), types.UpdatePayload{
			OldName: args[0], NewName: nameFlag, Method: method, IP: ip, Mask: mask, Gateway: gateway,
		})
		if err != nil {
			return err
		}
		printLogicInterface(cmd.OutOrStdout(), updated)
		return nil
	},
}

var removeCmd = &cobra.Command{
	Use:   "remove <name>",
	Short: "Remove a logical interface and its address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newClient().RemoveLogicInterface(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s removed\n", args[0])
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print every snapshot pushed by the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sub := newClient().Subscribe()
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return nil
			case hw, ok := <-sub.Updates():
				if !ok {
					return fmt.Errorf("event stream from %s closed", serverFlag)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "--- %s\n", time.Now().Format(time.RFC3339))
				if err := renderInterfaces(cmd.OutOrStdout(), hw, outputFlag); err != nil {
					return err
				}
			}
		}
	},
}

func addAddressFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&dhcpFlag, "dhcp", false, "Use DHCP")
	cmd.Flags().StringVar(&ipFlag, "ip", "", "Static IPv4 address")
	cmd.Flags().StringVar(&maskFlag, "mask", "", "Subnet mask, dotted (255.255.255.0) or prefix (/24)")
	cmd.Flags().StringVar(&gatewayFlag, "gateway", "", "Default gateway")
}

func init() {
	for _, c := range []*cobra.Command{listCmd, watchCmd} {
		c.Flags().StringVarP(&outputFlag, "output", "o", "table", "Output format: table or json")
	}
	addAddressFlags(addCmd)
	addAddressFlags(updateCmd)
	updateCmd.Flags().StringVar(&nameFlag, "name", "", "New name")

	rootCmd.AddCommand(listCmd, addCmd, updateCmd, removeCmd, watchCmd)
}
