package service

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/velozfibra/portal/internal/markdown"
	"github.com/velozfibra/portal/internal/model"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"
)

const (
	reportTitle        = "Relatório de Metas e Comissões"
	reportTitleMaxLen  = 30
	reportAssigneeMax  = 15
	reportDateTimeFmt  = "02/01/2006 às 15:04"
	reportEmptyMessage = "Nenhuma meta encontrada para exibir."
)

var statusLabels = map[model.GoalStatus]string{
	model.GoalStatusPending:    "Pendente",
	model.GoalStatusInProgress: "Em Andamento",
	model.GoalStatusCompleted:  "Concluída",
	model.GoalStatusCancelled:  "Cancelada",
}

var commissionRules = [][3]string{
	{"Renovações de Contrato", "R$ 3,00 por renovação", "Mínimo 100 renovações"},
	{"Upgrades de Clientes", "Diferença adicional paga", "Valor pago a mais"},
	{"Faturamento Total", "5% do faturamento", "Comissão baseada no faturamento"},
	{"Novos Clientes", "Metas de quantidade", "Sem comissão específica"},
	{"Satisfação do Cliente", "Metas de percentual", "Sem comissão específica"},
}

type Report struct {
	Title       string
	GeneratedBy string
	GeneratedAt time.Time
	Markdown    []byte
	HTML        []byte
	Meta        map[string]any
}

type reportFrontmatter struct {
	Title       string    `yaml:"title"`
	App         string    `yaml:"app"`
	GeneratedBy string    `yaml:"generated_by"`
	GeneratedAt time.Time `yaml:"generated_at"`
	TotalGoals  int       `yaml:"total_goals"`
}

type ReportService struct {
	goals   *GoalService
	parser  *markdown.Parser
	printer *message.Printer
	appName string
	now     func() time.Time
}

func NewReportService(goals *GoalService, appName, locale string) *ReportService {
	tag, err := language.Parse(locale)
	if err != nil {
		slog.Warn("invalid report locale, using pt-BR", "locale", locale, "error", err)
		tag = language.BrazilianPortuguese
	}

	return &ReportService{
		goals:   goals,
		parser:  markdown.NewParser(),
		printer: message.NewPrinter(tag),
		appName: appName,
		now:     goals.now,
	}
}

// Generate builds the goals report as markdown and renders it to HTML.
func (s *ReportService) Generate(ctx context.Context, generatedBy string) (*Report, error) {
	goals, err := s.goals.Goals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load goals: %w", err)
	}

	generatedAt := s.now()
	today := model.DateOf(generatedAt)
	summary := summarize(goals, today)

	source, err := s.markdown(goals, summary, generatedBy, generatedAt)
	if err != nil {
		return nil, err
	}

	html, meta, err := s.parser.ParseWithFrontmatter(source)
	if err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	slog.Info("goals report generated", "goals", len(goals), "generated_by", generatedBy)

	return &Report{
		Title:       reportTitle,
		GeneratedBy: generatedBy,
		GeneratedAt: generatedAt,
		Markdown:    source,
		HTML:        html,
		Meta:        meta,
	}, nil
}

func (s *ReportService) markdown(goals []*model.Goal, summary *model.GoalsSummary, generatedBy string, generatedAt time.Time) ([]byte, error) {
	var b bytes.Buffer

	front, err := yaml.Marshal(reportFrontmatter{
		Title:       reportTitle,
		App:         s.appName,
		GeneratedBy: generatedBy,
		GeneratedAt: generatedAt,
		TotalGoals:  summary.TotalGoals,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode report front matter: %w", err)
	}
	b.WriteString("---\n")
	b.Write(front)
	b.WriteString("---\n\n")

	// Header
	fmt.Fprintf(&b, "# %s\n\n", strings.ToUpper(reportTitle))
	fmt.Fprintf(&b, "Sistema de Metas - %s\n\n", escapeCell(s.appName))
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| **Gerado por** | %s |\n", escapeCell(generatedBy))
	fmt.Fprintf(&b, "| **Data** | %s |\n", generatedAt.Format(reportDateTimeFmt))
	b.WriteString("| **Tipo** | Relatório Completo de Metas |\n\n")

	// Executive summary
	b.WriteString("## Resumo Executivo\n\n")
	b.WriteString("| Indicador | Valor | |\n|---|---|---|\n")
	fmt.Fprintf(&b, "| Total de Metas | %d | |\n", summary.TotalGoals)
	fmt.Fprintf(&b, "| Concluídas | %d | %s |\n", summary.CompletedGoals, s.percent(summary.CompletionRate, 2))
	fmt.Fprintf(&b, "| Em Andamento | %d | |\n", summary.InProgressGoals)
	fmt.Fprintf(&b, "| Atrasadas | %d | |\n", summary.OverdueGoals)
	fmt.Fprintf(&b, "| Progresso Médio | %s | |\n", s.percent(summary.AvgProgress, 2))
	fmt.Fprintf(&b, "| Faturamento Total | %s | |\n\n", s.currency(summary.TotalRevenue))

	// Commission rules
	fmt.Fprintf(&b, "## Regras de Comissão - %s\n\n", escapeCell(s.appName))
	b.WriteString("| Tipo de Meta | Regra de Cálculo | Observações |\n|---|---|---|\n")
	for _, rule := range commissionRules {
		fmt.Fprintf(&b, "| %s | %s | %s |\n", rule[0], rule[1], rule[2])
	}
	b.WriteString("\n")

	// Goals
	b.WriteString("## Lista de Metas\n\n")
	if len(goals) == 0 {
		b.WriteString(reportEmptyMessage + "\n\n")
	} else {
		b.WriteString("| Título | Tipo | Status | Responsável | Progresso | Comissão |\n")
		b.WriteString("|---|---|---|---|---|---|\n")
		for _, g := range goals {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s | %s |\n",
				escapeCell(truncate(g.Title, reportTitleMaxLen)),
				goalTypeLabel(g.Type),
				statusLabel(g.Status),
				escapeCell(truncate(g.AssignedTo, reportAssigneeMax)),
				s.percent(g.ProgressPercentage(), 1),
				s.currency(g.CommissionValue()),
			)
		}
		b.WriteString("\n")
	}

	// Footer
	b.WriteString("---\n\n")
	fmt.Fprintf(&b, "Relatório gerado automaticamente pelo Sistema de Metas da %s.\n", escapeCell(s.appName))
	fmt.Fprintf(&b, "Data de geração: %s\n", generatedAt.Format("02/01/2006 às 15:04:05"))

	return b.Bytes(), nil
}

func (s *ReportService) currency(v float64) string {
	return s.printer.Sprintf("R$ %.2f", v)
}

func (s *ReportService) percent(v float64, decimals int) string {
	if decimals == 1 {
		return s.printer.Sprintf("%.1f%%", v)
	}
	return s.printer.Sprintf("%.2f%%", v)
}

func goalTypeLabel(t model.GoalType) string {
	return cases.Title(language.English).String(strings.ReplaceAll(string(t), "_", " "))
}

func statusLabel(st model.GoalStatus) string {
	label, ok := statusLabels[st]
	if !ok {
		return string(st)
	}
	return label
}

// truncate cuts s to limit characters and appends "..." when it was longer.
func truncate(s string, limit int) string {
	runes := []rune(norm.NFC.String(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit]) + "..."
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
