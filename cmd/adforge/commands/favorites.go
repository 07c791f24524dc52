package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmylchreest/adforge/internal/favorites"
	"github.com/jmylchreest/adforge/internal/logger"
	"github.com/jmylchreest/adforge/internal/output"
)

var favoritesCmd = &cobra.Command{
	Use:   "favorites",
	Short: "Manage favorited personas",
	Long: `Favorited personas are stored in a local SQLite database
(default $XDG_CONFIG_HOME/adforge/adforge.db, override with favorites_db).
Generated kits report which of their personas are favorited.`,
}

var favoritesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List favorited personas",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openFavorites()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		names, err := store.List()
		if err != nil {
			return err
		}

		formatStr, _ := cmd.Flags().GetString("format")
		format, err := output.ParseFormat(formatStr)
		if err != nil {
			return err
		}
		w, err := output.NewWriter(os.Stdout, format)
		if err != nil {
			return err
		}
		var out any = names
		if format == output.FormatText {
			out = strings.Join(names, "\n")
		}
		if err := w.Write(out); err != nil {
			return err
		}
		return w.Close()
	},
}

var favoritesToggleCmd = &cobra.Command{
	Use:   "toggle <persona>",
	Short: "Favorite a persona, or unfavorite it if already favorited",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openFavorites()
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()

		name := strings.Join(args, " ")
		on, err := store.Toggle(name)
		if err != nil {
			logger.Error("failed to toggle favorite", "persona", name, "error", err)
			return err
		}
		state := "removed from"
		if on {
			state = "added to"
		}
		_, err = fmt.Fprintf(os.Stdout, "%s %s favorites\n", strings.TrimSpace(name), state)
		return err
	},
}

func init() {
	rootCmd.AddCommand(favoritesCmd)
	favoritesCmd.AddCommand(favoritesListCmd, favoritesToggleCmd)

	favoritesCmd.PersistentFlags().String("db", "", "favorites database path")
	_ = viper.BindPFlag("favorites_db", favoritesCmd.PersistentFlags().Lookup("db"))

	favoritesListCmd.Flags().String("format", "text", "output format: json, yaml, text")
}

func favoritesPath() (string, error) {
	if p := viper.GetString("favorites_db"); p != "" {
		return p, nil
	}
	return favorites.DefaultPath()
}

func openFavorites() (*favorites.Store, error) {
	path, err := favoritesPath()
	if err != nil {
		return nil, err
	}
	logger.Debug("opening favorites", "path", path)
	store, err := favorites.Open(path)
	if err != nil {
		logger.Error("failed to open favorites", "path", path, "error", err)
		return nil, err
	}
	return store, nil
}
