package advice

import (
	"fmt"

	"github.com/BerylCAtieno/ikigai-coach/internal/models"
)

// BuildPrompt is the free-form coaching prompt covering all eight fields.
func BuildPrompt(rec models.IkigaiRecord) string {
	return fmt.Sprintf(`As a life coach who specialises in Ikigai, give practical advice and concrete steps for finding and living by this person's Ikigai, based on the following:
- What they love: %s
- What they are good at: %s
- What they can be paid for: %s
- What the world needs: %s
- Passion (love + good at): %s
- Mission (love + world needs): %s
- Profession (good at + paid for): %s
- Vocation (paid for + world needs): %s

Make the advice creative and actionable, covering:
1. **Career or project directions** that combine these elements well.
2. **Skills to develop** to connect their strengths with what the world needs.
3. **Small first steps** they can take this week to move closer to their Ikigai.

Format the answer as readable Markdown with clear headings.`,
		rec.Love, rec.GoodAt, rec.PaidFor, rec.WorldNeeds,
		rec.Passion, rec.Mission, rec.Profession, rec.Vocation)
}
