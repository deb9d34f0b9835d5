package models

import "strings"

var phaseLabels = map[string]map[string]string{
	"en": {
		PhaseScript:  "Writing script",
		PhaseImages:  "Generating images",
		PhaseVoice:   "Recording voice-over",
		PhaseMusic:   "Composing music",
		PhaseRender:  "Rendering video",
		PhasePublish: "Publishing",
	},
	"es": {
		PhaseScript:  "Escribiendo guion",
		PhaseImages:  "Generando imágenes",
		PhaseVoice:   "Grabando locución",
		PhaseMusic:   "Componiendo música",
		PhaseRender:  "Renderizando video",
		PhasePublish: "Publicando",
	},
	"pt": {
		PhaseScript:  "Escrevendo roteiro",
		PhaseImages:  "Gerando imagens",
		PhaseVoice:   "Gravando narração",
		PhaseMusic:   "Compondo música",
		PhaseRender:  "Renderizando vídeo",
		PhasePublish: "Publicando",
	},
	"zh": {
		PhaseScript:  "正在生成脚本",
		PhaseImages:  "正在生成图片",
		PhaseVoice:   "正在生成配音",
		PhaseMusic:   "正在生成配乐",
		PhaseRender:  "正在渲染视频",
		PhasePublish: "正在发布",
	},
}

// PhaseLabel returns the display label of phase in lang. "pt-BR" falls back
// to "pt", unknown languages to English, unknown phases to the raw name.
func PhaseLabel(lang, phase string) string {
	if phase == "" {
		return ""
	}
	key := strings.ToLower(phase)
	labels, ok := phaseLabels[baseLanguage(lang)]
	if !ok {
		labels = phaseLabels["en"]
	}
	if label, ok := labels[key]; ok {
		return label
	}
	return phase
}

func baseLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if i := strings.IndexAny(lang, "-_"); i >= 0 {
		lang = lang[:i]
	}
	return lang
}
