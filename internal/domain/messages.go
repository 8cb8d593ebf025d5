package domain

import "fmt"

// MessageKey identifies a user-facing message.
type MessageKey string

const (
	MsgProductRequired   MessageKey = "product_required"
	MsgNoStyles          MessageKey = "no_styles"
	MsgBatchFailed       MessageKey = "batch_failed"
	MsgRegenerateFailed  MessageKey = "regenerate_failed"
	MsgStyleFallback     MessageKey = "style_fallback"
	MsgStrategyFallback  MessageKey = "strategy_fallback"
	MsgEmptyArticle      MessageKey = "empty_article"
	MsgBatchInFlight     MessageKey = "batch_in_flight"
	MsgRegenInFlight     MessageKey = "regeneration_in_flight"
	MsgStyleNotGenerated MessageKey = "style_not_generated"
	MsgInvalidAsset      MessageKey = "invalid_asset"
	MsgInvalidParams     MessageKey = "invalid_params"
	MsgSessionNotFound   MessageKey = "session_not_found"
	MsgStaleResult       MessageKey = "stale_result"
	MsgNoImages          MessageKey = "no_images"
	MsgInternal          MessageKey = "internal"
)

const (
	LocaleVI      = "vi"
	LocaleEN      = "en"
	DefaultLocale = LocaleVI
)

var messages = map[string]map[MessageKey]string{
	LocaleVI: {
		MsgProductRequired:   "Vui lòng tải lên ảnh Sản Phẩm để tiếp tục.",
		MsgNoStyles:          "Không có đủ phong cách được gợi ý để bắt đầu tạo ảnh.",
		MsgBatchFailed:       "Tạo ảnh thất bại. Vui lòng thử lại.",
		MsgRegenerateFailed:  "Tạo lại phong cách '%s' thất bại.",
		MsgStyleFallback:     "Không thể lấy gợi ý phong cách. Sử dụng các phong cách mặc định.",
		MsgStrategyFallback:  "Không thể phân tích bài viết. Mặc định đề xuất sử dụng người mẫu.",
		MsgEmptyArticle:      "Vui lòng nhập nội dung bài viết để phân tích.",
		MsgBatchInFlight:     "Đang tạo ảnh, vui lòng chờ.",
		MsgRegenInFlight:     "Đang tạo lại một phong cách khác, vui lòng chờ.",
		MsgStyleNotGenerated: "Phong cách '%s' chưa được tạo.",
		MsgInvalidAsset:      "Ảnh không hợp lệ. Chỉ chấp nhận PNG, JPEG hoặc WEBP.",
		MsgInvalidParams:     "Tham số không hợp lệ.",
		MsgSessionNotFound:   "Phiên làm việc không tồn tại hoặc đã hết hạn.",
		MsgStaleResult:       "Phiên đã được làm mới, kết quả cũ bị bỏ qua.",
		MsgNoImages:          "Chưa có ảnh nào được tạo.",
		MsgInternal:          "Đã xảy ra lỗi, vui lòng thử lại.",
	},
	LocaleEN: {
		MsgProductRequired:   "Please upload a Product image to continue.",
		MsgNoStyles:          "Not enough suggested styles to start generating.",
		MsgBatchFailed:       "Image generation failed. Please try again.",
		MsgRegenerateFailed:  "Regenerating style '%s' failed.",
		MsgStyleFallback:     "Could not fetch style suggestions. Using default styles.",
		MsgStrategyFallback:  "Could not analyze the article. Defaulting to a human model.",
		MsgEmptyArticle:      "Please enter the article text to analyze.",
		MsgBatchInFlight:     "Images are being generated, please wait.",
		MsgRegenInFlight:     "Another style is being regenerated, please wait.",
		MsgStyleNotGenerated: "Style '%s' has not been generated.",
		MsgInvalidAsset:      "Invalid image. Only PNG, JPEG or WEBP are accepted.",
		MsgInvalidParams:     "Invalid parameters.",
		MsgSessionNotFound:   "Session not found or expired.",
		MsgStaleResult:       "The session was reset; the late result was discarded.",
		MsgNoImages:          "No images have been generated yet.",
		MsgInternal:          "Something went wrong, please try again.",
	},
}

// Message renders a user-facing message in the given locale, falling back to
// the default display language.
func Message(locale string, key MessageKey, args ...any) string {
	table, ok := messages[locale]
	if !ok {
		table = messages[DefaultLocale]
	}
	text, ok := table[key]
	if !ok {
		text = messages[DefaultLocale][key]
	}
	if len(args) > 0 {
		return fmt.Sprintf(text, args...)
	}
	return text
}

// SupportedLocales lists the display languages in preference order.
func SupportedLocales() []string {
	return []string{LocaleVI, LocaleEN}
}

// LoadingMessages rotate while a batch is in flight.
var LoadingMessages = map[string][]string{
	LocaleVI: {
		"Đang dựng bối cảnh...",
		"Đang tạo các biến thể phong cách...",
		"Đang hoàn thiện các ấn phẩm...",
		"AI đang sáng tạo, vui lòng chờ...",
	},
	LocaleEN: {
		"Building the scene...",
		"Creating style variations...",
		"Finishing the artwork...",
		"AI is creating, please wait...",
	},
}

// FallbackStyles is returned by the style suggester whenever the model call
// fails. The list is fixed regardless of locale.
func FallbackStyles() []string {
	return []string{
		"Tối giản & Sạch sẽ",
		"Sống động & Năng động",
		"Sang trọng & Thanh lịch",
		"Tương lai & Công nghệ",
	}
}

// FallbackStrategy is returned by the strategy analyzer on any failure.
func FallbackStrategy(locale string) ViralStrategy {
	return ViralStrategy{
		NeedsHuman:        true,
		Reason:            Message(locale, MsgStrategyFallback),
		SuggestedElements: []string{},
	}
}
