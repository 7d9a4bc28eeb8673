package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/licitalab/editalscan/internal/ai"
	"github.com/licitalab/editalscan/internal/async"
	"github.com/licitalab/editalscan/internal/cache"
	"github.com/licitalab/editalscan/internal/common"
	"github.com/licitalab/editalscan/internal/entity"
	"github.com/licitalab/editalscan/internal/extract"
	"github.com/licitalab/editalscan/internal/intake"
	"github.com/licitalab/editalscan/internal/notify"
	"github.com/licitalab/editalscan/internal/pipeline"
	"github.com/licitalab/editalscan/internal/quality"
	"github.com/licitalab/editalscan/internal/repository"
	"github.com/licitalab/editalscan/internal/scoring"
)

func newProcessCmd() *cobra.Command {
	var (
		outputDir string
		uasg      string
		numero    string
		ano       int
		callback  string
	)

	cmd := &cobra.Command{
		Use:   "process <edital.pdf>",
		Short: "Run the full analysis pipeline on one PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			cfg := common.LoadConfig()
			logger := slog.Default()

			params := scoring.DefaultParams()
			qualityWeights := quality.DefaultWeights()
			if cfg.Pipeline.ScoringFile != "" {
				var err error
				params, err = scoring.LoadParamsFile(cfg.Pipeline.ScoringFile)
				if err != nil {
					return fmt.Errorf("load scoring parameters: %w", err)
				}
				qualityWeights, err = quality.LoadWeightsFile(cfg.Pipeline.ScoringFile)
				if err != nil {
					return fmt.Errorf("load quality weights: %w", err)
				}
			}

			runner := extract.NewExecRunner()
			var tables extract.TableExtractor
			if cfg.Capabilities.TableServiceURL != "" {
				tables = extract.NewTableServiceClient(cfg.Capabilities.TableServiceURL, logger)
			}

			results := repository.NewFileResultStore(outputDir, logger)

			orchestrator := pipeline.NewOrchestrator(pipeline.Deps{
				Docs:      extract.NewPopplerExtractor(cfg.Capabilities.PdftotextBin, cfg.Capabilities.PdfinfoBin, runner, logger),
				OCR:       extract.NewTesseractOCR(cfg.Capabilities.TesseractBin, cfg.Capabilities.TessdataDir, runner, logger),
				Tables:    tables,
				Analyzer:  ai.NewOllamaClient(cfg.Capabilities.OllamaURL, cfg.Capabilities.OllamaModel, cfg.Capabilities.AITimeout, logger),
				Risk:      scoring.NewRiskAnalyzer(params, logger),
				Opps:      scoring.NewOpportunityIdentifier(logger),
				Quality:   quality.NewAggregator(qualityWeights, logger),
				Results:   results,
				Callbacks: notify.NewHTTPCallbackSender(cfg.Capabilities.CallbackTimeout, logger),
				Cache:     cache.NewMemory(time.Hour),
			}, cfg.Pipeline, cfg.Capabilities, logger)

			hash, err := intake.HashFile(args[0])
			if err != nil {
				return err
			}

			taskID := uuid.New()
			job := async.Job{
				TaskID:      taskID,
				FilePath:    args[0],
				ContentHash: hash,
				Metadata: entity.RunMetadata{
					Ano:          ano,
					UASG:         uasg,
					NumeroPregao: numero,
					CallbackURL:  callback,
				},
				SubmittedAt: time.Now(),
			}

			result, err := orchestrator.Run(ctx, job, taskID.String())
			if err != nil {
				return fmt.Errorf("processing failed: %w", err)
			}

			printSummary(cmd, result)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", "./processed", "directory for result JSON files")
	cmd.Flags().StringVar(&uasg, "uasg", "", "UASG code hint")
	cmd.Flags().StringVar(&numero, "numero", "", "pregão number hint (e.g. 001/2025)")
	cmd.Flags().IntVar(&ano, "ano", 0, "procurement year hint")
	cmd.Flags().StringVar(&callback, "callback", "", "webhook URL notified on completion")
	return cmd
}

func printSummary(cmd *cobra.Command, r *entity.FinalResult) {
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Arquivo:        %s\n", r.Filename)
	if info := r.Structured; info != nil {
		fmt.Fprintf(out, "Pregão:         %s (UASG %s)\n", valueOr(info.NumeroPregao, "?"), valueOr(info.UASG, "?"))
		fmt.Fprintf(out, "Órgão:          %s\n", valueOr(info.Orgao, "?"))
		if info.ValorEstimado > 0 {
			fmt.Fprintf(out, "Valor estimado: R$ %.2f\n", info.ValorEstimado)
		}
	}
	fmt.Fprintf(out, "Qualidade:      %.1f/100\n", r.QualityScore)
	fmt.Fprintf(out, "Nível de risco: %s\n", r.RiskAnalysis.Summary.OverallLevel)
	fmt.Fprintf(out, "Riscos:         %d\n", r.Summary.RisksIdentified)
	for i, risk := range r.RiskAnalysis.Risks {
		if i == 3 {
			break
		}
		fmt.Fprintf(out, "  - [%s] %s\n", risk.Severity, risk.Title)
	}
	fmt.Fprintf(out, "Oportunidades:  %d\n", r.Summary.OpportunitiesFound)
	for i, opp := range r.Opportunities {
		if i == 3 {
			break
		}
		fmt.Fprintf(out, "  - [%s] %s\n", opp.Priority, opp.Title)
	}
	fmt.Fprintf(out, "Tempo total:    %.1fs\n", r.Summary.ProcessingSeconds)
}

func valueOr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
