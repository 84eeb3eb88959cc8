package efaktur

import (
	"regexp"
	"strconv"
	"strings"
	"unicode/utf16"

	"golang.org/x/text/encoding/charmap"
)

// textFromPDFContent parses a PDF content stream and extracts the text shown
// by it. Text showing operators carry literal strings in parentheses or hex
// strings in angle brackets.
func textFromPDFContent(content string) string {
	var result strings.Builder

	for _, s := range pdfLiteralStrings(content) {
		text := decodePDFString(s)
		result.WriteString(text)
		result.WriteString("\n")
	}

	hexRe := regexp.MustCompile(`<([0-9A-Fa-f]+)>`)
	for _, match := range hexRe.FindAllStringSubmatch(content, -1) {
		if len(match) > 1 {
			if text := decodeHexString(match[1]); text != "" {
				result.WriteString(text)
				result.WriteString("\n")
			}
		}
	}

	return result.String()
}

// pdfLiteralStrings extracts strings enclosed in parentheses, handling
// escaped and nested parens.
func pdfLiteralStrings(content string) []string {
	var results []string
	i := 0
	for i < len(content) {
		if content[i] == '(' {
			str, endIdx := pdfLiteralString(content, i)
			if endIdx > i {
				results = append(results, str)
				i = endIdx
			} else {
				i++
			}
		} else {
			i++
		}
	}
	return results
}

// pdfLiteralString extracts a single parenthesized string starting at start.
// Returns the content without the outer parens and the index after the
// closing paren.
func pdfLiteralString(content string, start int) (string, int) {
	if start >= len(content) || content[start] != '(' {
		return "", start
	}

	var result strings.Builder
	depth := 0
	i := start

	for i < len(content) {
		ch := content[i]
		if ch == '\\' && i+1 < len(content) {
			result.WriteByte(ch)
			result.WriteByte(content[i+1])
			i += 2
			continue
		}
		if ch == '(' {
			depth++
			if depth > 1 {
				result.WriteByte(ch)
			}
		} else if ch == ')' {
			depth--
			if depth == 0 {
				return result.String(), i + 1
			}
			result.WriteByte(ch)
		} else if depth > 0 {
			result.WriteByte(ch)
		}
		i++
	}
	return result.String(), i
}

// decodePDFString decodes escape sequences in PDF literal strings.
func decodePDFString(s string) string {
	var result strings.Builder
	i := 0
	for i < len(s) {
		if s[i] == '\\' && i+1 < len(s) {
			switch s[i+1] {
			case 'n':
				result.WriteRune('\n')
			case 'r':
				result.WriteRune('\r')
			case 't':
				result.WriteRune('\t')
			case 'b':
				result.WriteRune('\b')
			case 'f':
				result.WriteRune('\f')
			case '(':
				result.WriteRune('(')
			case ')':
				result.WriteRune(')')
			case '\\':
				result.WriteRune('\\')
			default:
				// Octal escape sequence
				if s[i+1] >= '0' && s[i+1] <= '7' {
					octal := string(s[i+1])
					j := i + 2
					for k := 0; k < 2 && j < len(s) && s[j] >= '0' && s[j] <= '7'; k++ {
						octal += string(s[j])
						j++
					}
					if val, err := strconv.ParseInt(octal, 8, 32); err == nil {
						result.WriteRune(rune(val))
					}
					i = j - 1
				} else {
					result.WriteByte(s[i+1])
				}
			}
			i += 2
		} else {
			result.WriteByte(s[i])
			i++
		}
	}

	// Fall back to Windows-1252 when the bytes are not valid UTF-8.
	decoded := result.String()
	if containsReplacementChars(decoded) || containsHighBytes(decoded) {
		if converted, err := convertWindows1252ToUTF8(decoded); err == nil {
			return converted
		}
	}
	return decoded
}

func containsReplacementChars(s string) bool {
	return strings.ContainsRune(s, '�')
}

func containsHighBytes(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return true
		}
	}
	return false
}

func convertWindows1252ToUTF8(s string) (string, error) {
	decoder := charmap.Windows1252.NewDecoder()
	result, err := decoder.String(s)
	if err != nil {
		return s, err
	}
	return result, nil
}

// decodeHexString decodes hex-encoded PDF strings, including UTF-16BE text.
func decodeHexString(hex string) string {
	if len(hex)%2 != 0 {
		hex += "0"
	}

	byteData := make([]byte, len(hex)/2)
	for i := 0; i+1 < len(hex); i += 2 {
		val, err := strconv.ParseInt(hex[i:i+2], 16, 32)
		if err != nil {
			continue
		}
		byteData[i/2] = byte(val)
	}

	// UTF-16BE with BOM
	if len(byteData) >= 2 && byteData[0] == 0xFE && byteData[1] == 0xFF {
		return decodeUTF16BE(byteData[2:])
	}

	// UTF-16BE without BOM: ASCII text shows up as alternating null bytes
	if len(byteData) >= 4 && isLikelyUTF16BE(byteData) {
		return decodeUTF16BE(byteData)
	}

	var result strings.Builder
	for _, b := range byteData {
		if b >= 32 {
			result.WriteByte(b)
		}
	}

	decoded := result.String()
	if containsHighBytes(decoded) {
		if converted, err := convertWindows1252ToUTF8(decoded); err == nil {
			return converted
		}
	}
	return decoded
}

func isLikelyUTF16BE(data []byte) bool {
	if len(data) < 4 || len(data)%2 != 0 {
		return false
	}
	zeroCount := 0
	for i := 0; i < len(data); i += 2 {
		if data[i] == 0 {
			zeroCount++
		}
	}
	return zeroCount > len(data)/4
}

func decodeUTF16BE(data []byte) string {
	if len(data)%2 != 0 {
		data = append(data, 0)
	}

	u16 := make([]uint16, len(data)/2)
	for i := 0; i < len(data); i += 2 {
		u16[i/2] = uint16(data[i])<<8 | uint16(data[i+1])
	}

	runes := utf16.Decode(u16)

	var result strings.Builder
	for _, r := range runes {
		if r >= 32 || r == '\n' || r == '\r' || r == '\t' {
			result.WriteRune(r)
		}
	}
	return result.String()
}
