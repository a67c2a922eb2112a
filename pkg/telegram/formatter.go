package telegram

import (
	"fmt"
	"strings"

	"golang-signal-pipeline/internal/entity"
)

// FormatSignalMessage renders a broadcast signal announcement.
func FormatSignalMessage(signal *entity.Signal) string {
	var sb strings.Builder

	emoji := "⏸"
	switch signal.Recommendation {
	case entity.RecommendationBuy:
		emoji = "📈"
	case entity.RecommendationSell:
		emoji = "📉"
	}

	sb.WriteString(fmt.Sprintf("%s *%s Signal: %s*\n", emoji, signal.Recommendation, signal.Symbol))
	sb.WriteString(fmt.Sprintf("Confidence: %.0f%%\n", signal.Confidence*100))
	sb.WriteString(fmt.Sprintf("Votes: %d for / %d against / %d neutral\n",
		signal.VotesFor, signal.VotesAgainst, signal.VotesNeutral))
	if signal.ConsensusAchieved {
		sb.WriteString("Consensus: achieved\n")
	} else {
		sb.WriteString("Consensus: not achieved\n")
	}
	if signal.TargetPrice != nil {
		sb.WriteString(fmt.Sprintf("Target: %.4f\n", *signal.TargetPrice))
	}
	if signal.StopLoss != nil {
		sb.WriteString(fmt.Sprintf("Stop: %.4f\n", *signal.StopLoss))
	}
	if signal.Reasoning != "" {
		sb.WriteString(fmt.Sprintf("\n_%s_", signal.Reasoning))
	}

	return sb.String()
}

// FormatExecutionMessage renders an executor outcome notification.
func FormatExecutionMessage(disp *entity.AgentSignalDisposition) string {
	var sb strings.Builder

	switch disp.Status {
	case entity.DispositionExecuted:
		sb.WriteString(fmt.Sprintf("✅ *Executed*: %s %s for agent %s\n", disp.Recommendation, disp.Symbol, disp.AgentName))
		if disp.ExecutionPrice != nil && disp.ExecutionQuantity != nil {
			sb.WriteString(fmt.Sprintf("Fill: %.4f x %.4f\n", *disp.ExecutionPrice, *disp.ExecutionQuantity))
		}
		if disp.OrderRef != nil {
			sb.WriteString(fmt.Sprintf("Order: `%s`", *disp.OrderRef))
		}
	case entity.DispositionFiltered:
		sb.WriteString(fmt.Sprintf("🚫 *Filtered*: %s not supported by venue for agent %s", disp.Symbol, disp.AgentName))
	case entity.DispositionFailed:
		sb.WriteString(fmt.Sprintf("❌ *Failed*: %s %s for agent %s", disp.Recommendation, disp.Symbol, disp.AgentName))
		if disp.ErrorMessage.Valid {
			sb.WriteString(fmt.Sprintf("\n`%s`", disp.ErrorMessage.String))
		}
	}

	return sb.String()
}
