package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/coursebuilder/api/internal/model"
)

// ChatClient is the LLM completion surface consumed by composition.
type ChatClient interface {
	ChatCompletion(ctx context.Context, system, user string) (string, error)
	IsConfigured() bool
}

// maxSectionChars bounds the content sent in one translation call. Longer
// sections are split at paragraph, then sentence boundaries.
const maxSectionChars = 3000

// CourseService turns a transcript into a French course document:
// structure analysis, per-theme translation and restructuring, learning
// objectives and reflection questions, then final assembly.
type CourseService struct {
	chat ChatClient
}

func NewCourseService(chat ChatClient) *CourseService {
	return &CourseService{chat: chat}
}

var chunkHeaderRe = regexp.MustCompile(`## Chunk \d+ \[[^\]]*\]`)

// Compose translates and restructures transcript text into a pedagogically
// organized Markdown course. Auxiliary calls (title, objectives, questions,
// structure analysis) degrade to static fallbacks on generic failures;
// section translation failures and any rate-limit error are terminal.
func (s *CourseService) Compose(ctx context.Context, transcript string) (string, error) {
	// Use mock course if the chat client is not configured
	if s.chat == nil || !s.chat.IsConfigured() {
		return s.composeMock(), nil
	}

	chunks := SplitTranscriptChunks(transcript)
	if len(chunks) == 0 {
		return "", model.NewPipelineError(model.StageComposition,
			errors.New("transcript is empty"))
	}
	fullText := strings.Join(chunks, " ")

	plan, err := s.analyzeStructure(ctx, fullText)
	if err != nil {
		if errors.Is(err, model.ErrRateLimited) {
			return "", model.NewPipelineError(model.StageComposition, err)
		}
		log.Printf("course: structure analysis failed, using chronological fallback: %v", err)
		plan = fallbackPlan(len(chunks))
	}

	title, err := s.generateTitle(ctx, sample(fullText, 500))
	if err != nil {
		if errors.Is(err, model.ErrRateLimited) {
			return "", model.NewPipelineError(model.StageComposition, err)
		}
		log.Printf("course: title generation failed, using fallback: %v", err)
		title = "Cours IA Avancé"
	}

	mapping := mapChunksToThemes(chunks, plan.Themes)

	var modules []model.CourseModule
	for i, themeTitle := range plan.Progression {
		theme, ok := findTheme(plan.Themes, themeTitle)
		if !ok {
			continue
		}

		content, err := s.translateSection(ctx, mapping[theme.Title], theme)
		if err != nil {
			return "", model.NewPipelineError(model.StageComposition, err)
		}

		objectives, err := s.learningObjectives(ctx, theme.Title, content)
		if err != nil {
			if errors.Is(err, model.ErrRateLimited) {
				return "", model.NewPipelineError(model.StageComposition, err)
			}
			objectives = []string{
				"Comprendre les concepts clés de " + theme.Title,
				"Appliquer les principes abordés dans " + theme.Title,
			}
		}

		questions, err := s.reflectionQuestions(ctx, theme.Title, content)
		if err != nil {
			if errors.Is(err, model.ErrRateLimited) {
				return "", model.NewPipelineError(model.StageComposition, err)
			}
			questions = []string{
				fmt.Sprintf("Comment pourriez-vous appliquer %s dans votre domaine ?", theme.Title),
			}
		}

		modules = append(modules, model.CourseModule{
			Number:     i + 1,
			Title:      theme.Title,
			Duration:   theme.Duration,
			Concepts:   theme.KeyConcepts,
			Content:    content,
			Objectives: objectives,
			Questions:  questions,
		})
	}

	if len(modules) == 0 {
		return "", model.NewPipelineError(model.StageComposition,
			errors.New("structure analysis produced no usable modules"))
	}

	return assembleCourse(title, modules), nil
}

// SplitTranscriptChunks extracts the per-chunk text segments from a
// transcript document. Text without chunk headers is one segment.
func SplitTranscriptChunks(transcript string) []string {
	matches := chunkHeaderRe.FindAllStringIndex(transcript, -1)
	if len(matches) == 0 {
		trimmed := strings.TrimSpace(transcript)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var chunks []string
	for i, m := range matches {
		start := m[1]
		end := len(transcript)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		text := strings.TrimSpace(transcript[start:end])
		if text != "" {
			chunks = append(chunks, text)
		}
	}
	return chunks
}

func (s *CourseService) analyzeStructure(ctx context.Context, fullText string) (*model.CoursePlan, error) {
	prompt := fmt.Sprintf(`Analyse cette transcription de cours et identifie:
1. Les thèmes principaux abordés (5-8 thèmes maximum)
2. L'ordre logique pour un cours structuré
3. Les concepts clés pour chaque thème

Transcription: %s

Réponds au format JSON:
{
    "themes": [
        {
            "titre": "Titre du thème",
            "concepts_cles": ["concept1", "concept2"],
            "duree_estimee": "10 minutes"
        }
    ],
    "progression_logique": ["theme1", "theme2", "theme3"]
}`, sample(fullText, 4000))

	response, err := s.chat.ChatCompletion(ctx, "", prompt)
	if err != nil {
		return nil, err
	}

	var plan model.CoursePlan
	if err := json.Unmarshal([]byte(extractJSON(response)), &plan); err != nil {
		return nil, fmt.Errorf("invalid structure analysis JSON: %w", err)
	}
	if len(plan.Themes) == 0 {
		return nil, errors.New("structure analysis returned no themes")
	}
	if len(plan.Progression) == 0 {
		for _, t := range plan.Themes {
			plan.Progression = append(plan.Progression, t.Title)
		}
	}
	return &plan, nil
}

// fallbackPlan splits the transcript chronologically into 3-6 modules when
// structure analysis is unavailable.
func fallbackPlan(chunkCount int) *model.CoursePlan {
	themeCount := chunkCount / 2
	if themeCount < 3 {
		themeCount = 3
	}
	if themeCount > 6 {
		themeCount = 6
	}

	plan := &model.CoursePlan{}
	for i := 0; i < themeCount; i++ {
		title := fmt.Sprintf("Module %d", i+1)
		plan.Themes = append(plan.Themes, model.Theme{
			Title:       title,
			KeyConcepts: []string{"Concepts principaux", "Applications pratiques"},
			Duration:    "8-10 minutes",
		})
		plan.Progression = append(plan.Progression, title)
	}
	return plan
}

// mapChunksToThemes divides the ordered chunks evenly among the themes.
func mapChunksToThemes(chunks []string, themes []model.Theme) map[string]string {
	mapping := make(map[string]string, len(themes))
	if len(themes) == 0 {
		return mapping
	}

	perTheme := len(chunks) / len(themes)
	if perTheme == 0 {
		perTheme = 1
	}
	for i, theme := range themes {
		start := i * perTheme
		if start >= len(chunks) {
			mapping[theme.Title] = ""
			continue
		}
		end := start + perTheme
		if i == len(themes)-1 || end > len(chunks) {
			end = len(chunks)
		}
		mapping[theme.Title] = strings.Join(chunks[start:end], " ")
	}
	return mapping
}

func findTheme(themes []model.Theme, title string) (model.Theme, bool) {
	for _, t := range themes {
		if t.Title == title {
			return t, true
		}
	}
	return model.Theme{}, false
}

func (s *CourseService) generateTitle(ctx context.Context, sampleText string) (string, error) {
	prompt := fmt.Sprintf(`Basé sur cet extrait de transcription d'un cours, génère un titre accrocheur et professionnel en français pour le cours complet.
Le titre doit être:
- Précis et descriptif
- Professionnel mais engageant
- Maximum 8 mots
- En français

Extrait: %s

Réponds seulement avec le titre, sans guillemets ni explications.`, sampleText)

	response, err := s.chat.ChatCompletion(ctx, "", prompt)
	if err != nil {
		return "", err
	}
	title := strings.Trim(strings.TrimSpace(response), `"“”`)
	if title == "" {
		return "", errors.New("empty title")
	}
	return title, nil
}

// translateSection translates one theme's content to French presentation
// Markdown, splitting oversized content before calling the model.
func (s *CourseService) translateSection(ctx context.Context, content string, theme model.Theme) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", nil
	}

	if len(content) <= maxSectionChars {
		return s.translateSingle(ctx, content, theme.Title, theme.KeyConcepts)
	}

	parts := SplitContent(content, maxSectionChars)
	translated := make([]string, 0, len(parts))
	for i, part := range parts {
		partTitle := fmt.Sprintf("%s (Partie %d/%d)", theme.Title, i+1, len(parts))
		out, err := s.translateSingle(ctx, part, partTitle, theme.KeyConcepts)
		if err != nil {
			return "", err
		}
		translated = append(translated, out)
	}
	return strings.Join(translated, "\n\n"), nil
}

func (s *CourseService) translateSingle(ctx context.Context, content, themeTitle string, concepts []string) (string, error) {
	system := `Tu es un expert pédagogue spécialisé dans la création de cours pour des présentations live en français.`
	prompt := fmt.Sprintf(`Tâche: Traduire et restructurer ce contenu de cours en français optimisé pour une présentation dynamique.

Thème: %s
Concepts clés à souligner: %s

Contenu original: %s

Instructions de formatage:
1. Traduis fidèlement en français académique mais accessible
2. Restructure en sections courtes (2-3 minutes chacune)
3. Utilise des listes à puces pour les points clés
4. Ajoute des questions rhétoriques pour engager l'audience
5. Marque les moments clés pour des pauses ou des démonstrations avec 🔍
6. Suggère des exemples concrets avec 💡
7. Indique les définitions importantes avec 📝

Format de réponse (markdown):
### [Titre de sous-section]

[Contenu traduit et optimisé]`, themeTitle, strings.Join(concepts, ", "), content)

	response, err := s.chat.ChatCompletion(ctx, system, prompt)
	if err != nil {
		return "", fmt.Errorf("translation of %q failed: %w", themeTitle, err)
	}
	return strings.TrimSpace(response), nil
}

func (s *CourseService) learningObjectives(ctx context.Context, themeTitle, content string) ([]string, error) {
	prompt := fmt.Sprintf(`Basé sur ce titre de module "%s" et ce contenu, génère 3-4 objectifs d'apprentissage clairs et mesurables en français.

Contenu: %s

Format: Liste de phrases commençant par des verbes d'action (comprendre, analyser, appliquer, évaluer, etc.)
Réponds seulement avec la liste, une ligne par objectif, préfixée par "- "`, themeTitle, sample(content, 500))

	response, err := s.chat.ChatCompletion(ctx, "", prompt)
	if err != nil {
		return nil, err
	}
	return parseBulletLines(response), nil
}

func (s *CourseService) reflectionQuestions(ctx context.Context, themeTitle, content string) ([]string, error) {
	prompt := fmt.Sprintf(`Génère 3-4 questions de réflexion engageantes pour ce module "%s".
Les questions doivent encourager la réflexion critique et l'application pratique.

Contenu du module: %s

Réponds seulement avec les questions, une par ligne, préfixées par "- "`, themeTitle, sample(content, 500))

	response, err := s.chat.ChatCompletion(ctx, "", prompt)
	if err != nil {
		return nil, err
	}
	return parseBulletLines(response), nil
}

// SplitContent splits text into parts of at most maxChars, preferring
// paragraph boundaries and falling back to sentence boundaries.
func SplitContent(content string, maxChars int) []string {
	var parts []string
	var current string

	for _, paragraph := range strings.Split(content, "\n\n") {
		switch {
		case len(current)+len(paragraph)+2 <= maxChars:
			if current != "" {
				current += "\n\n" + paragraph
			} else {
				current = paragraph
			}
		case len(paragraph) > maxChars:
			if current != "" {
				parts = append(parts, current)
				current = ""
			}
			parts = append(parts, splitBySentences(paragraph, maxChars)...)
		default:
			if current != "" {
				parts = append(parts, current)
			}
			current = paragraph
		}
	}
	if current != "" {
		parts = append(parts, current)
	}
	return parts
}

var sentenceEndRe = regexp.MustCompile(`([.!?])\s+`)

func splitBySentences(text string, maxChars int) []string {
	sentences := sentenceEndRe.Split(text, -1)
	ends := sentenceEndRe.FindAllStringSubmatch(text, -1)
	for i := range sentences {
		if i < len(ends) {
			sentences[i] += ends[i][1]
		}
	}

	var parts []string
	var current string
	for _, sentence := range sentences {
		switch {
		case len(current)+len(sentence)+1 <= maxChars:
			if current != "" {
				current += " " + sentence
			} else {
				current = sentence
			}
		case len(sentence) > maxChars:
			if current != "" {
				parts = append(parts, current)
				current = ""
			}
			parts = append(parts, sentence[:maxChars-3]+"...")
		default:
			if current != "" {
				parts = append(parts, current)
			}
			current = sentence
		}
	}
	if current != "" {
		parts = append(parts, current)
	}
	return parts
}

func assembleCourse(title string, modules []model.CourseModule) string {
	var b strings.Builder

	totalMinutes := 0
	for _, m := range modules {
		totalMinutes += parseMinutes(m.Duration)
	}

	fmt.Fprintf(&b, "# %s\n*Cours généré le %s*\n\n---\n\n", title, time.Now().Format("2006-01-02"))

	b.WriteString("## 📋 Vue d'Ensemble du Cours\n\n")
	b.WriteString("### Objectifs Généraux\nÀ la fin de ce cours, vous serez capable de :\n")
	for _, obj := range globalObjectives(modules) {
		fmt.Fprintf(&b, "- %s\n", obj)
	}

	b.WriteString("\n### 📊 Informations Pratiques\n")
	fmt.Fprintf(&b, "- **Durée totale estimée** : %d minutes (%dh%02d)\n", totalMinutes, totalMinutes/60, totalMinutes%60)
	b.WriteString("- **Format** : Présentation interactive avec démonstrations\n")
	b.WriteString("- **Niveau** : Intermédiaire à Avancé\n")

	b.WriteString("\n### 🗺️ Plan du Cours\n")
	for _, m := range modules {
		fmt.Fprintf(&b, "**Module %d** : %s *(%s)*\n", m.Number, m.Title, m.Duration)
		if len(m.Concepts) > 0 {
			top := m.Concepts
			if len(top) > 3 {
				top = top[:3]
			}
			fmt.Fprintf(&b, "   - %s\n", strings.Join(top, " • "))
		}
		b.WriteString("\n")
	}
	b.WriteString("---\n\n")

	for _, m := range modules {
		fmt.Fprintf(&b, "## 🎯 Module %d: %s\n*Durée estimée: %s*\n\n", m.Number, m.Title, m.Duration)
		b.WriteString("### 🎓 Objectifs d'Apprentissage\n")
		for _, obj := range m.Objectives {
			fmt.Fprintf(&b, "- %s\n", obj)
		}
		fmt.Fprintf(&b, "\n### 📚 Contenu du Module\n\n%s\n\n", m.Content)
		b.WriteString("### 🤔 Questions de Réflexion\n")
		for _, q := range m.Questions {
			fmt.Fprintf(&b, "- %s\n", q)
		}
		b.WriteString("\n---\n\n")
	}

	b.WriteString(appendices(modules))
	return b.String()
}

func globalObjectives(modules []model.CourseModule) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range modules {
		for _, obj := range m.Objectives {
			if !seen[obj] {
				seen[obj] = true
				out = append(out, obj)
			}
			if len(out) == 5 {
				return out
			}
		}
	}
	return out
}

func appendices(modules []model.CourseModule) string {
	var b strings.Builder
	b.WriteString("## 📚 Annexes\n\n")

	b.WriteString("### 📖 Glossaire\n*Termes techniques clés utilisés dans ce cours*\n\n")
	b.WriteString("**Intelligence Artificielle (IA)** : Capacité d'une machine à imiter l'intelligence humaine\n")
	b.WriteString("**Apprentissage Automatique** : Méthode permettant aux machines d'apprendre sans programmation explicite\n")
	b.WriteString("**Réseaux de Neurones** : Modèles computationnels inspirés du fonctionnement du cerveau humain\n")
	b.WriteString("**Traitement du Langage Naturel** : Branche de l'IA qui permet aux machines de comprendre le langage humain\n")

	b.WriteString("\n### 🔄 Résumé Exécutif\n*Points clés à retenir de chaque module*\n\n")
	for _, m := range modules {
		concepts := m.Concepts
		if len(concepts) > 2 {
			concepts = concepts[:2]
		}
		fmt.Fprintf(&b, "**%s** : %s\n", m.Title, strings.Join(concepts, " • "))
	}

	b.WriteString("\n### 🎯 Prochaines Étapes Recommandées\n")
	b.WriteString("- Pratiquer les concepts abordés à travers des projets personnels\n")
	b.WriteString("- Rejoindre des communautés spécialisées dans le domaine\n")
	b.WriteString("- Continuer la veille technologique sur les dernières avancées\n")

	return b.String()
}

var digitsRe = regexp.MustCompile(`\d+`)

// parseMinutes pulls the first number out of strings like "8-10 minutes".
func parseMinutes(duration string) int {
	if m := digitsRe.FindString(duration); m != "" {
		var n int
		fmt.Sscanf(m, "%d", &n)
		return n
	}
	return 10
}

// parseBulletLines turns an LLM bullet list into clean strings.
func parseBulletLines(response string) []string {
	var out []string
	for _, line := range strings.Split(response, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimPrefix(line, "- ")
		line = strings.TrimPrefix(line, "• ")
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}

// extractJSON attempts to extract JSON from a response that may contain extra text
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end != -1 && end > start {
		return s[start : end+1]
	}
	return s
}

// composeMock returns a deterministic French course used when no LLM is
// configured, keeping the full pipeline runnable offline.
func (s *CourseService) composeMock() string {
	modules := []model.CourseModule{
		{
			Number:   1,
			Title:    "Introduction à l'Apprentissage Automatique",
			Duration: "10 minutes",
			Concepts: []string{"Apprentissage supervisé", "Données d'entraînement"},
			Content: `### Qu'est-ce que l'apprentissage automatique ?

L'apprentissage automatique permet aux machines d'apprendre à partir de données sans programmation explicite.

- Les modèles apprennent des régularités présentes dans les données
- La qualité des données d'entraînement détermine la qualité du modèle

📝 **Définition** : un modèle généralise lorsqu'il produit de bonnes prédictions sur des exemples jamais vus.

💡 **Exemple pratique** : le filtrage du courrier indésirable.`,
			Objectives: []string{
				"Comprendre les principes de l'apprentissage supervisé",
				"Identifier le rôle des données d'entraînement",
			},
			Questions: []string{
				"Quels problèmes de votre quotidien pourraient être résolus par un modèle supervisé ?",
			},
		},
		{
			Number:   2,
			Title:    "Réseaux de Neurones et Optimisation",
			Duration: "10 minutes",
			Concepts: []string{"Descente de gradient", "Hyperparamètres"},
			Content: `### Comment un réseau apprend-il ?

La descente de gradient ajuste les poids du réseau pour réduire l'erreur de prédiction.

- Le taux d'apprentissage contrôle la taille des pas d'optimisation
- Les hyperparamètres se règlent par expérimentation

🔍 **Point d'attention** : un taux d'apprentissage trop élevé empêche la convergence.`,
			Objectives: []string{
				"Expliquer le fonctionnement de la descente de gradient",
				"Évaluer l'impact des hyperparamètres sur un modèle",
			},
			Questions: []string{
				"Comment choisiriez-vous les hyperparamètres d'un nouveau modèle ?",
			},
		},
		{
			Number:   3,
			Title:    "Applications Pratiques et Perspectives",
			Duration: "10 minutes",
			Concepts: []string{"Cas d'usage", "Compromis pratiques"},
			Content: `### De la théorie à la pratique

Les compromis entre précision, coût et latence guident les choix d'architecture en production.

💡 **Exemple pratique** : la transcription automatique de vidéos éducatives.`,
			Objectives: []string{
				"Analyser les compromis d'un déploiement en production",
			},
			Questions: []string{
				"Quel compromis entre précision et coût accepteriez-vous pour votre application ?",
			},
		},
	}
	return assembleCourse("Cours d'Intelligence Artificielle Avancée", modules)
}

// sample returns at most n leading characters of s, on a rune boundary.
func sample(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
