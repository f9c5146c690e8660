package cli

import (
	"context"
	"fmt"
	"os"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	formline "github.com/formline/formline"
	"github.com/formline/formline/rules"
)

var checkCmd = &cobra.Command{
	Use:   "check <model.json>",
	Short: "Validate a JSON model against a YAML rule set",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rulesPath, _ := cmd.Flags().GetString("rules")
		if rulesPath == "" {
			return fmt.Errorf("--rules is required")
		}

		rf, err := os.Open(rulesPath)
		if err != nil {
			return err
		}
		defer rf.Close()
		set, err := rules.Load(rf)
		if err != nil {
			return err
		}

		data, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}
		var model any
		if err := json.Unmarshal(data, &model); err != nil {
			return fmt.Errorf("parse model: %w", err)
		}

		f := formline.New(model,
			formline.WithValidator(set.Validator()),
			formline.WithDependents(set.Dependents()),
		)
		defer f.Close()

		res, err := f.Submit(context.Background())
		if err != nil {
			return err
		}
		if res.OK {
			fmt.Println("ok")
			return nil
		}
		paths := make([]string, 0, len(res.Issues))
		byPath := map[string][]string{}
		for _, is := range res.Issues {
			if _, seen := byPath[is.Path]; !seen {
				paths = append(paths, is.Path)
			}
			byPath[is.Path] = append(byPath[is.Path], is.Message)
		}
		sort.Strings(paths)
		for _, p := range paths {
			for _, msg := range byPath[p] {
				fmt.Printf("FAIL %s: %s\n", p, msg)
			}
		}
		return fmt.Errorf("%d invalid path(s)", len(paths))
	},
}

func init() {
	checkCmd.Flags().String("rules", "", "path to the YAML rule set")
}
