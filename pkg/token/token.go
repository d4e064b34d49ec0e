package token

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// secretKey 是一个全局变量，用于存储服务器在启动时生成的32字节密钥。
var secretKey []byte

// IdentityPayload 定义了需要被签名的参与者身份数据。
// 客户端在join响应中收到签名令牌，重连时带回它以保留同一个参与者ID。
type IdentityPayload struct {
	ParticipantID string `json:"p"`
}

// GenerateSecretKey 生成一个密码学安全的32字节随机密钥。
// 密钥只在进程生命周期内有效，重启后旧令牌失效、客户端重新join即可。
func GenerateSecretKey() {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	if err != nil {
		panic("无法生成安全的密钥: " + err.Error())
	}
	secretKey = key
	fmt.Println("HMAC密钥已成功生成。")
}

// SignIdentity 为一个参与者ID生成身份令牌。
// 令牌的格式是 base64(payload) + "." + base64(signature)。
func SignIdentity(participantID string) (string, error) {
	payloadBytes, err := json.Marshal(IdentityPayload{ParticipantID: participantID})
	if err != nil {
		return "", errors.New("无法序列化身份payload")
	}

	mac := hmac.New(sha256.New, secretKey)
	mac.Write(payloadBytes)
	signature := mac.Sum(nil)

	encodedPayload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	encodedSignature := base64.RawURLEncoding.EncodeToString(signature)
	return encodedPayload + "." + encodedSignature, nil
}

// VerifyIdentity 验证一个身份令牌，返回其中的参与者ID。
// 任何格式或签名问题都只返回false，不区分具体原因。
func VerifyIdentity(tokenStr string) (string, bool) {
	parts := strings.SplitN(tokenStr, ".", 2)
	if len(parts) != 2 {
		return "", false
	}

	payloadBytes, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return "", false
	}
	actualSignature, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", false
	}

	// 重新计算预期的签名
	mac := hmac.New(sha256.New, secretKey)
	mac.Write(payloadBytes)
	expectedSignature := mac.Sum(nil)

	// 使用 hmac.Equal 进行安全的、时间恒定的比较，防止时序攻击
	if !hmac.Equal(expectedSignature, actualSignature) {
		return "", false
	}

	var payload IdentityPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return "", false
	}
	if payload.ParticipantID == "" {
		return "", false
	}
	return payload.ParticipantID, true
}
