package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/kilianp07/eta/client"
	"github.com/kilianp07/eta/core/inference"
	"github.com/kilianp07/eta/core/model"
	"github.com/kilianp07/eta/core/prediction"
	"github.com/kilianp07/eta/infra/modelstore"
)

func newPredictCmd(opts *rootOptions) *cobra.Command {
	var (
		f       model.TripFeatures
		traffic string
		url     string
	)
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the ETA of one trip",
		Long: "Predict the ETA of one trip with the local artifact, or with a running\n" +
			"service when --url is given. --traffic takes Low, Medium, High or a number in [0,1].",
		RunE: func(cmd *cobra.Command, args []string) error {
			level, err := trafficValue(traffic)
			if err != nil {
				return err
			}
			f.TrafficLevel = level

			var resp inference.Response
			if url != "" {
				eta, err := client.New(url).PredictETA(cmd.Context(), f)
				if err != nil {
					return err
				}
				resp = inference.Response{PredictedETA: &eta, Status: inference.StatusOK}
			} else {
				if resp, err = predictLocal(cmd, opts, f); err != nil {
					return err
				}
			}
			out, err := json.Marshal(resp)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			if !resp.OK() {
				return errors.New(resp.Error)
			}
			return nil
		},
	}
	fl := cmd.Flags()
	fl.Float64Var(&f.DistanceKm, "distance", 0, "trip distance in km")
	fl.Float64Var(&f.AvgSpeed, "speed", 0, "average speed in km/h")
	fl.StringVar(&traffic, "traffic", "", "traffic level")
	fl.Float64Var(&f.BatteryLevel, "battery", 0, "battery level in percent")
	fl.Float64Var(&f.FuelLevel, "fuel", 0, "fuel level in percent")
	fl.StringVar(&url, "url", "", "base URL of a running service")
	for _, name := range []string{"distance", "speed", "traffic", "battery", "fuel"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func predictLocal(cmd *cobra.Command, opts *rootOptions, f model.TripFeatures) (inference.Response, error) {
	cfg, err := opts.load()
	if err != nil {
		return inference.Response{}, err
	}
	predictor, err := prediction.NewPredictor(modelstore.NewFileStore(cfg.Model.Path))
	if err != nil {
		return inference.Response{}, err
	}
	v := f.Vector()
	payload := make(map[string]any, model.NumFeatures)
	for i, name := range model.FeatureNames {
		payload[name] = v[i]
	}
	ctx := inference.WithSource(cmd.Context(), "cli")
	return inference.NewHandler(predictor).Handle(ctx, payload), nil
}

// trafficValue accepts a category label or its numeric encoding.
func trafficValue(s string) (float64, error) {
	if lvl, err := model.ParseTrafficLevel(s); err == nil {
		return lvl.Encode()
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("traffic %q: want Low, Medium, High or a number", s)
	}
	return v, nil
}
