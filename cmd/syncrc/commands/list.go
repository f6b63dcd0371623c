// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package commands

import (
	"fmt"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/walteh/syncrc/cmd/syncrc/opts"
	"gitlab.com/tozd/go/errors"
)

// NewListCmd creates the list command
func NewListCmd(o *opts.RootOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the host profiles of the config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data := pterm.TableData{{"NAME", "PROTOCOL", "ADDRESS", "CONTEXT", "REMOTE PATH", "SYNC MODE"}}
			for _, h := range o.File.Hosts {
				address := "-"
				if h.Host != "" {
					address = h.Host + ":" + strconv.Itoa(h.Port)
				}
				data = append(data, []string{h.Name, h.Protocol, address, h.Context, h.RemotePath, h.SyncMode})
			}
			table, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
			if err != nil {
				return errors.Errorf("rendering hosts: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}
