package pipeline

import "github.com/jonathan/bookforge/internal/types"

// Stage names in pipeline order.
const (
	StageCharacterExtraction = "character_extraction"
	StageTrendResearch       = "trend_research"
	StagePlanning            = "planning"
	StageStyleAnalysis       = "style_analysis"
	StageTextGeneration      = "text_generation"
	StageImageGeneration     = "image_generation"
	StageAssembly            = "assembly"
	StageTranslation         = "translation"
)

var optionalStages = map[string]bool{
	StageTrendResearch: true,
	StageStyleAnalysis: true,
	StageTranslation:   true,
}

// IsOptional reports whether a stage failure is tolerated.
func IsOptional(stage string) bool {
	return optionalStages[stage]
}

// BuildStageList computes the ordered stage names for a request. The
// capability set is fixed here, at submission time; the pipeline body
// never consults feature flags again.
func BuildStageList(flags types.FeatureFlags) []string {
	stages := []string{StageCharacterExtraction}
	if flags.TrendResearch {
		stages = append(stages, StageTrendResearch)
	}
	stages = append(stages, StagePlanning)
	if flags.StyleImitation {
		stages = append(stages, StageStyleAnalysis)
	}
	stages = append(stages, StageTextGeneration, StageImageGeneration, StageAssembly)
	if flags.Translation {
		stages = append(stages, StageTranslation)
	}
	return stages
}
