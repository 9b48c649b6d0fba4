package vision

const analysisPrompt = `You measure ring fingers in photos. Return JSON matching the response schema.

Steps:
1. Find a reference object of known size. Prefer, in order: a bank or credit card
   (ISO/IEC 7810 ID-1, 85.6 mm wide), an identifiable phone model, a common coin.
2. Find the ring finger (fourth finger, beside the little finger).
3. Measure in pixels:
   - with a reference object: its width and the ring finger width at the knuckle;
   - without one: the finger width, plus your best estimate of the finger width in
     millimetres from typical hand proportions and the photo's perspective.

Rules:
- Without a reference object set referenceObject to null and fill finger.estimatedWidthMM.
- With a reference object leave finger.estimatedWidthMM out.
- If no finger is clearly visible or the image is unusable, set isMeasurementPossible
  to false and say why in analysisNotes.
- Pixel values are integers. knownWidthMM is the object's standard width.`

// responseSchema constrains the model output.
var responseSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"isMeasurementPossible": map[string]any{
			"type":        "BOOLEAN",
			"description": "True when a finger is visible and measurable.",
		},
		"referenceObject": map[string]any{
			"type":        "OBJECT",
			"nullable":    true,
			"description": "Reference object found in the image, or null.",
			"properties": map[string]any{
				"type":            map[string]any{"type": "STRING"},
				"knownWidthMM":    map[string]any{"type": "NUMBER"},
				"measuredWidthPX": map[string]any{"type": "INTEGER"},
			},
		},
		"finger": map[string]any{
			"type": "OBJECT",
			"properties": map[string]any{
				"measuredWidthPX":  map[string]any{"type": "INTEGER"},
				"estimatedWidthMM": map[string]any{"type": "NUMBER"},
			},
			"required": []string{"measuredWidthPX"},
		},
		"analysisNotes": map[string]any{
			"type":        "STRING",
			"description": "Observations, or the reason measurement failed.",
		},
	},
	"required": []string{"isMeasurementPossible", "analysisNotes", "finger"},
}
