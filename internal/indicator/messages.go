package indicator

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/rbright/murmur/internal/session"
)

type locale string

const (
	localeEnglish locale = "en"
	localeChinese locale = "zh"
)

type messages struct {
	recording  string
	processing string
	errorText  string
	kinds      map[session.Kind]string
	reasons    map[session.Reason]string
	// withReason joins a kind message and its reason.
	withReason string
	// withDetail appends the backend error text.
	withDetail string
}

// maxDetailRunes bounds the error text appended to a notice.
const maxDetailRunes = 80

// resolveLocale picks the configured locale, then LC_ALL, LC_MESSAGES, LANG.
func resolveLocale(configured string) locale {
	candidates := []string{configured, os.Getenv("LC_ALL"), os.Getenv("LC_MESSAGES"), os.Getenv("LANG")}
	for _, raw := range candidates {
		raw = strings.ToLower(strings.TrimSpace(raw))
		switch {
		case raw == "":
			continue
		case strings.HasPrefix(raw, "zh"):
			return localeChinese
		default:
			return localeEnglish
		}
	}
	return localeEnglish
}

func indicatorMessages(tag locale) messages {
	switch tag {
	case localeChinese:
		return messages{
			recording:  "正在录音…",
			processing: "正在转写…",
			errorText:  "语音识别出错",
			withReason: "%s（%s）",
			withDetail: "%s：%s",
			kinds: map[session.Kind]string{
				session.KindRecordingUnavailable: "无法开始录音",
				session.KindTooShort:             "录音太短",
				session.KindNoSpeech:             "未识别到语音",
				session.KindNoNetwork:            "网络不可用，请切换到离线模式",
				session.KindCredentialMissing:    "未配置 API 密钥，已打开设置",
				session.KindTranscriptionFailed:  "转写失败",
				session.KindPolishFailed:         "润色失败，已粘贴原始文本",
				session.KindTimeout:              "处理超时",
				session.KindPasteFailed:          "粘贴失败，文本已复制到剪贴板",
			},
			reasons: map[session.Reason]string{
				session.ReasonNetwork:          "网络错误",
				session.ReasonInvalidResponse:  "响应无效",
				session.ReasonAPIRejected:      "请求被拒绝",
				session.ReasonModelUnavailable: "模型不可用",
				session.ReasonUnknown:          "未知错误",
			},
		}
	default:
		return messages{
			recording:  "Recording…",
			processing: "Transcribing…",
			errorText:  "Speech recognition error",
			withReason: "%s (%s)",
			withDetail: "%s: %s",
			kinds: map[session.Kind]string{
				session.KindRecordingUnavailable: "Could not start recording",
				session.KindTooShort:             "Recording too short",
				session.KindNoSpeech:             "No speech recognized",
				session.KindNoNetwork:            "Network unavailable; switch to an offline mode",
				session.KindCredentialMissing:    "API key missing; settings opened",
				session.KindTranscriptionFailed:  "Transcription failed",
				session.KindPolishFailed:         "Polish failed; pasted raw text",
				session.KindTimeout:              "Processing timed out",
				session.KindPasteFailed:          "Paste failed; text is on the clipboard",
			},
			reasons: map[session.Reason]string{
				session.ReasonNetwork:          "network error",
				session.ReasonInvalidResponse:  "invalid response",
				session.ReasonAPIRejected:      "request rejected",
				session.ReasonModelUnavailable: "model unavailable",
				session.ReasonUnknown:          "unknown error",
			},
		}
	}
}

// render turns a notice into display text. Cancelled and empty reasons add
// nothing to the kind message. Backend failures carry the error text.
func (m messages) render(notice session.Notice) string {
	text, ok := m.kinds[notice.Kind]
	if !ok {
		text = m.errorText
	}
	if reason, ok := m.reasons[notice.Reason]; ok {
		text = fmt.Sprintf(m.withReason, text, reason)
	}

	switch notice.Kind {
	case session.KindTranscriptionFailed, session.KindPolishFailed:
		if detail := errorDetail(notice.Err); detail != "" {
			text = fmt.Sprintf(m.withDetail, text, detail)
		}
	}
	return text
}

// errorDetail is the first line of err without the reason prefix a
// BackendError adds, cut to maxDetailRunes.
func errorDetail(err error) string {
	if err == nil {
		return ""
	}
	var backend *session.BackendError
	if errors.As(err, &backend) && backend.Err != nil {
		err = backend.Err
	}

	line, _, _ := strings.Cut(err.Error(), "\n")
	line = strings.Join(strings.Fields(line), " ")
	if runes := []rune(line); len(runes) > maxDetailRunes {
		line = string(runes[:maxDetailRunes-1]) + "…"
	}
	return line
}
