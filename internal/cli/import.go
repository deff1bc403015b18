package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sentiment-alpha/internal/domain"
)

func newImportCandlesCmd(a *app) *cobra.Command {
	var (
		file      string
		symbol    string
		timeframe string
	)

	cmd := &cobra.Command{
		Use:   "import-candles",
		Short: "Upsert candles from a JSON array (file or stdin)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.rt == nil || a.rt.UpsertCandles == nil {
				return errors.New("candle store unavailable")
			}

			var in io.Reader = cmd.InOrStdin()
			if file != "" && file != "-" {
				f, err := os.Open(file)
				if err != nil {
					return fmt.Errorf("open candles: %w", err)
				}
				defer f.Close()
				in = f
			}

			var candles []domain.Candle
			if err := json.NewDecoder(in).Decode(&candles); err != nil {
				return fmt.Errorf("decode candles: %w", err)
			}
			for i := range candles {
				if candles[i].Symbol == "" {
					candles[i].Symbol = symbol
				}
				if candles[i].Timeframe == "" {
					candles[i].Timeframe = strings.ToLower(timeframe)
				}
				if candles[i].Symbol == "" || candles[i].Timeframe == "" {
					return fmt.Errorf("candle %d: symbol and timeframe are required", i)
				}
				candles[i].OpenTime = candles[i].OpenTime.UTC().Truncate(time.Minute)
			}

			if err := a.rt.UpsertCandles(cmd.Context(), candles); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "upserted %d candles\n", len(candles))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "-", "JSON file with candles, - for stdin")
	cmd.Flags().StringVar(&symbol, "symbol", "", "Symbol for candles that omit it")
	cmd.Flags().StringVar(&timeframe, "timeframe", "1m", "Timeframe for candles that omit it")
	return cmd
}
