package main

import (
	"encoding/json"
	"fmt"

	"diabcare/internal/logging"
	"diabcare/internal/predictor"
	"diabcare/internal/validation"

	"github.com/spf13/cobra"
)

func (a *app) predictCommand() *cobra.Command {
	var f validation.Features

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Classify one set of vitals with the configured model",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := f.ValidateVitals(); err != nil {
				return err
			}

			model := predictor.Load(a.cfg.ModelPath, logging.ForService("predictor"))
			outcome := model.Predict(f.Glucose, f.BloodPressure, f.BMI, f.Pedigree, f.Age)
			if !outcome.Available() {
				return outcome.Err
			}

			out := json.NewEncoder(cmd.OutOrStdout())
			out.SetIndent("", "  ")
			return out.Encode(map[string]any{
				"label":         outcome.Label,
				"result":        outcome.ResultText(),
				"confidence":    outcome.Confidence,
				"model_version": model.Version(),
			})
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&f.Glucose, "glucose", 0, "Plasma glucose concentration")
	flags.Float64Var(&f.BloodPressure, "blood-pressure", 0, "Diastolic blood pressure (mm Hg)")
	flags.Float64Var(&f.BMI, "bmi", 0, "Body mass index")
	flags.Float64Var(&f.Pedigree, "pedigree", 0, "Diabetes pedigree function")
	flags.IntVar(&f.Age, "age", 0, "Age in years")
	for _, name := range []string{"glucose", "blood-pressure", "bmi", "pedigree", "age"} {
		if err := cmd.MarkFlagRequired(name); err != nil {
			panic(fmt.Sprintf("mark %s required: %v", name, err))
		}
	}
	return cmd
}
