package cmd

import (
	"contra-reconciliation-service/cmd/reconciler/config"
	"contra-reconciliation-service/internal/matcher"
	"contra-reconciliation-service/internal/party"
	"contra-reconciliation-service/internal/pipeline"
	"contra-reconciliation-service/internal/reconciler"
	"contra-reconciliation-service/internal/refcode"
	"contra-reconciliation-service/internal/tracking"
	"contra-reconciliation-service/internal/workbook"
	"contra-reconciliation-service/pkg/logger"

	"github.com/spf13/viper"
)

// services are the long-lived pieces shared by reconcile and serve.
type services struct {
	runner  *pipeline.Runner
	service *reconciler.Service
	ledger  *tracking.Ledger
}

func (s *services) Close() error {
	if s.ledger != nil {
		return s.ledger.Close()
	}
	return nil
}

// buildServices wires the pipeline from configuration. trackingDB may be
// empty to disable the ledger.
func buildServices(v *viper.Viper, outputDir, trackingDB string) (*services, error) {
	log := logger.GetGlobalLogger()

	banks, err := config.LoadBankDirectory(v)
	if err != nil {
		return nil, err
	}
	matching, err := config.CreateMatchingConfig(v)
	if err != nil {
		return nil, err
	}
	names, err := config.CreatePartyConfig(v)
	if err != nil {
		return nil, err
	}
	comparison, err := config.CreateReconcilerConfig(v, matching)
	if err != nil {
		return nil, err
	}

	log.WithField("matching", matching.String()).Debug("Matching configuration")

	loader, err := workbook.NewLoader(nil, nil, banks)
	if err != nil {
		return nil, err
	}
	engine := matcher.NewEngine(matching, party.NewResolver(names), refcode.NewExtractor())
	service, err := reconciler.NewService(engine, banks, comparison)
	if err != nil {
		return nil, err
	}

	s := &services{service: service}
	if trackingDB != "" {
		s.ledger, err = tracking.Open(trackingDB)
		if err != nil {
			return nil, err
		}
	}

	s.runner = pipeline.NewRunner(loader, service, workbook.NewWriter(outputDir, nil), s.ledger)
	return s, nil
}
