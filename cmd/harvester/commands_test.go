package main

import "testing"

func TestRootRegistersSubcommands(t *testing.T) {
	root := newRootCmd()
	for _, name := range []string{"run", "watch"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("expected %q subcommand, got %v (%v)", name, cmd, err)
		}
		if cmd.Flags().Lookup("url") == nil {
			t.Fatalf("%q is missing the --url flag", name)
		}
	}
}
