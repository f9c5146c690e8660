package cli

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	formline "github.com/formline/formline"
)

var pathsCmd = &cobra.Command{
	Use:   "paths <model.json>",
	Short: "List every leaf path of a JSON model in canonical form",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var model any
		if err := json.Unmarshal(data, &model); err != nil {
			return fmt.Errorf("parse model: %w", err)
		}
		for _, p := range formline.LeafPaths(model) {
			fmt.Println(p)
		}
		return nil
	},
}
