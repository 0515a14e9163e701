package studio

import "time"

// DefaultPrompt - 클라이언트 기본 프롬프트 (hidden cut 드론 전환)
const DefaultPrompt = "Create an ultra-realistic cinematic drone video that transitions seamlessly from Reference Image 1 to Reference Image 2 using a hidden cut (NOT a morph).\n\n" +
	"SHOT A (Reference Image 1):\n" +
	"Start exactly matching Reference Image 1 composition, subject placement, and scale. Use realistic drone camera motion: smooth stabilized forward glide with subtle rise or descent (choose what fits the scene), gentle parallax, physically plausible motion blur, and natural exposure/white balance. Maintain real-world geometry and architecture/nature structure—no surreal changes.\n\n" +
	"TRANSITION (must be a hidden cut with full-frame occlusion):\n" +
	"Do NOT blend the two locations. Do NOT transform one scene into another.\n" +
	"Perform a transition where the camera movement naturally causes the frame to become fully occluded for a short moment (choose the most plausible occluder based on the scene):\n" +
	"\t•\ttilt up into 100% sky/clouds, OR\n" +
	"\t•\tpass behind trees/foliage, OR\n" +
	"\t•\tpass behind/under a wall/bridge/rock, OR\n" +
	"\t•\twhip-pan causing full-frame motion blur with no readable details.\n\n" +
	"Hold full occlusion (or fully unreadable blur) for 12–18 frames. During that occluded/blurred moment, do a clean hard cut to the second location.\n\n" +
	"SHOT B (Reference Image 2):\n" +
	"Emerge from the same occlusion element into Reference Image 2 and immediately match its composition, subject placement, and scale. Continue the same camera direction and speed so the move feels continuous. Stabilize and ease into a cinematic hero framing that ends close to Reference Image 2.\n\n" +
	"GLOBAL REALISM RULES:\n" +
	"\t•\tPhotoreal, cinematic color grade, consistent lens and exposure across both shots.\n" +
	"\t•\tKeep lighting/weather/time-of-day consistent (soft daylight preferred unless references suggest otherwise).\n" +
	"\t•\tMaintain realistic perspective: no bending lines, no melting surfaces, no stretching structures, no impossible topology changes.\n" +
	"\t•\tNo portals, no magical transitions, no morphing, no environment “opening up.”\n" +
	"\t•\tNo text, subtitles, logos, watermarks, UI.\n\n" +
	"CAMERA / FILM LOOK:\n" +
	"Drone camera, stabilized gimbal, natural micro-jitter only, 24–30 fps, cinematic motion blur, crisp detail, realistic atmospheric haze if appropriate."

// LoadingMessages - 생성 중 표시 문구
var LoadingMessages = []string{
	"Starting your memory...",
	"Capturing the journey...",
	"Adding cinematic movement...",
	"Almost ready...",
}

// LoadingInterval - 로딩 문구 교체 주기
const LoadingInterval = 3 * time.Second

// LoadingMessage returns the message shown after elapsed time; the list wraps around.
func LoadingMessage(elapsed time.Duration) string {
	if elapsed < 0 {
		elapsed = 0
	}
	idx := int(elapsed/LoadingInterval) % len(LoadingMessages)
	return LoadingMessages[idx]
}
