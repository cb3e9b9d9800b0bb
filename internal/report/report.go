// Package report exports a completed analysis as an xlsx workbook for
// sharing outside the CLI.
package report

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/newsystem-ai/recording-insights/internal/model"
)

// WriteWorkbook writes the analysis envelope to an xlsx file with summary,
// workflow, opportunity, and recommendation sheets.
func WriteWorkbook(path string, envelope *model.AnalysisEnvelope) error {
	if envelope == nil {
		return eris.New("report: nil envelope")
	}

	f := xlsx.NewFile()

	if err := addSummarySheet(f, envelope); err != nil {
		return err
	}
	if err := addWorkflowSheet(f, envelope.Workflows); err != nil {
		return err
	}
	if err := addOpportunitySheet(f, envelope); err != nil {
		return err
	}
	if err := addRecommendationSheet(f, envelope); err != nil {
		return err
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save workbook %s", path)
	}
	return nil
}

func addSummarySheet(f *xlsx.File, envelope *model.AnalysisEnvelope) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "report: add summary sheet")
	}

	addKV := func(key string, value any) {
		row := sheet.AddRow()
		row.AddCell().SetString(key)
		switch v := value.(type) {
		case string:
			row.AddCell().SetString(v)
		case int:
			row.AddCell().SetInt(v)
		case int64:
			row.AddCell().SetInt64(v)
		case float64:
			row.AddCell().SetFloatWithFormat(v, "0.00")
		}
	}

	addKV("Run ID", envelope.RunID)
	addKV("Analysis type", envelope.AnalysisType)
	addKV("Frames analyzed", envelope.Frames.FramesAnalyzed)
	addKV("Workflows", envelope.Summary.TotalWorkflows)
	addKV("Opportunities", envelope.Summary.TotalOpportunities)
	addKV("High priority opportunities", envelope.Summary.HighPriorityOpportunities)
	addKV("Time saved daily (minutes)", envelope.Summary.TimeSavingsDailyMinutes)
	addKV("Cost saved annually (USD)", envelope.Summary.CostSavingsAnnualUSD)
	addKV("Confidence", envelope.Confidence)
	addKV("Tokens used", envelope.TokensUsed)
	addKV("Estimated analysis cost (USD)", envelope.EstimatedCostUSD)
	if envelope.ROI != nil {
		addKV("Implementation cost (USD)", envelope.ROI.Implementation.TotalCostUSD)
		addKV("Payback (months)", envelope.ROI.Implementation.PaybackMonths)
		addKV("ROI percent", envelope.ROI.Implementation.ROIPercent)
		addKV("Priority", string(envelope.ROI.Implementation.Priority))
		addKV("Executive summary", envelope.ROI.ExecutiveSummary)
	}
	return nil
}

func addWorkflowSheet(f *xlsx.File, workflows []model.Workflow) error {
	sheet, err := f.AddSheet("Workflows")
	if err != nil {
		return eris.Wrap(err, "report: add workflows sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"Type", "Description", "Duration (s)", "Repetitive score", "Priority score", "Applications"} {
		header.AddCell().SetString(h)
	}

	for _, wf := range workflows {
		row := sheet.AddRow()
		row.AddCell().SetString(wf.Type)
		row.AddCell().SetString(wf.Description)
		row.AddCell().SetFloatWithFormat(wf.DurationSeconds, "0.0")
		row.AddCell().SetFloatWithFormat(wf.RepetitiveScore, "0.00")
		row.AddCell().SetFloatWithFormat(wf.PriorityScore, "0.00")
		row.AddCell().SetString(strings.Join(wf.Applications, ", "))
	}
	return nil
}

func addOpportunitySheet(f *xlsx.File, envelope *model.AnalysisEnvelope) error {
	sheet, err := f.AddSheet("Opportunities")
	if err != nil {
		return eris.Wrap(err, "report: add opportunities sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{
		"Description", "Workflow type", "Potential", "Complexity",
		"Daily minutes saved", "Annual hours saved", "Annual savings (USD)", "Priority score",
	} {
		header.AddCell().SetString(h)
	}

	for _, op := range envelope.Opportunities {
		row := sheet.AddRow()
		row.AddCell().SetString(op.Description)
		row.AddCell().SetString(op.WorkflowType)
		row.AddCell().SetString(op.AutomationPotential)
		row.AddCell().SetString(op.ImplementationComplexity)
		row.AddCell().SetFloatWithFormat(op.TimeSavedDailyMinutes, "0.0")
		row.AddCell().SetFloatWithFormat(op.TimeSavedAnnualHours, "0.0")
		row.AddCell().SetFloatWithFormat(op.CostSavedAnnualUSD, "0.00")
		row.AddCell().SetFloatWithFormat(op.PriorityScore, "0.0")
	}
	return nil
}

func addRecommendationSheet(f *xlsx.File, envelope *model.AnalysisEnvelope) error {
	sheet, err := f.AddSheet("Recommendations")
	if err != nil {
		return eris.Wrap(err, "report: add recommendations sheet")
	}

	header := sheet.AddRow()
	header.AddCell().SetString("Recommendation")

	if envelope.ROI != nil {
		for _, rec := range envelope.ROI.Recommendations {
			sheet.AddRow().AddCell().SetString(rec)
		}
	}
	for _, insight := range envelope.Insights {
		sheet.AddRow().AddCell().SetString("Insight: " + insight)
	}
	return nil
}
