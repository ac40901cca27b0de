package errors

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ikkim/storefront-backend/internal/app/service"
	"github.com/ikkim/storefront-backend/internal/lock"
	"github.com/ikkim/storefront-backend/pkg/util"
	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Status  int                    // HTTP 상태 코드
	Code    string                 // 에러 코드 (codes.go 참조)
	Message string                 // 사용자 친화적 메시지
	Data    map[string]interface{} // 부가 정보
}

type domainMapping struct {
	err     error
	status  int
	code    string
	message string
}

// 서비스 계층 에러 → 응답 매핑 (위에서부터 먼저 일치하는 항목 사용)
var domainMappings = []domainMapping{
	{service.ErrProductNotFound, http.StatusNotFound, ProductNotFound, "Product not found"},
	{service.ErrVariantNotFound, http.StatusNotFound, VariantNotFound, "Variant not found"},
	{service.ErrOutOfStock, http.StatusConflict, OutOfStock, "Product is out of stock"},
	{service.ErrMaxItemExceeded, http.StatusBadRequest, MaxItemExceeded, "Maximum quantity per order exceeded"},
	{service.ErrEmptyCart, http.StatusBadRequest, EmptyCart, "Cart is empty"},
	{service.ErrInvalidUser, http.StatusUnauthorized, InvalidUser, "Invalid user"},
	{service.ErrRemarkRequired, http.StatusBadRequest, RemarkRequired, "A remark is required to cancel an order"},
	{service.ErrInvalidStatus, http.StatusBadRequest, InvalidStatus, "Invalid order status"},
	{service.ErrInvalidStatusTransition, http.StatusConflict, InvalidStatusTransition, "Order status can no longer be changed"},
	{service.ErrOrderNotFound, http.StatusNotFound, OrderNotFound, "Order not found"},
	{service.ErrCartItemNotFound, http.StatusNotFound, CartItemNotFound, "Item is not in the cart"},
	{service.ErrInvalidQuantity, http.StatusBadRequest, InvalidQuantity, "Quantity must be a nonzero integer"},
	{service.ErrSKURequired, http.StatusBadRequest, SKURequired, "SKU is required"},
	{service.ErrAddressNotFound, http.StatusNotFound, AddressNotFound, "Address not found"},
	{service.ErrSKUExists, http.StatusConflict, SKUExists, "SKU already exists"},
	{service.ErrPriceAboveMRP, http.StatusBadRequest, PriceAboveMRP, "Price cannot exceed MRP"},
	{service.ErrInvalidProduct, http.StatusBadRequest, InvalidProduct, "Invalid product"},
	{service.ErrTransactionFailed, http.StatusServiceUnavailable, TransactionFailed, "Transaction failed, please retry"},
	{service.ErrEmailAlreadyExists, http.StatusConflict, AuthEmailAlreadyExists, "Email already exists"},
	{service.ErrInvalidCredentials, http.StatusUnauthorized, AuthInvalidCredentials, "Invalid email or password"},
	{service.ErrUserNotFound, http.StatusNotFound, AuthUserNotFound, "User not found"},
	{util.ErrPasswordTooShort, http.StatusBadRequest, ValidationTooShort, "Password must be at least 8 characters"},
	{lock.ErrLockTimeout, http.StatusServiceUnavailable, TransactionFailed, "Another request for this cart is in progress, please retry"},
}

// ParseError 에러를 파싱하여 상태 코드, 에러 코드, 메시지로 변환
// 보안상 민감한 정보는 숨기되, 사용자가 문제를 해결할 수 있는 정보 제공
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Status:  http.StatusInternalServerError,
			Code:    InternalServerError,
			Message: "Something went wrong",
		}
	}

	// 1. 재고/수량 에러 (부가 정보 포함)
	var stockErr *service.StockError
	if errors.As(err, &stockErr) {
		return parseStockError(stockErr)
	}

	// 2. 서비스 계층 에러
	for _, m := range domainMappings {
		if errors.Is(err, m.err) {
			return ErrorInfo{Status: m.status, Code: m.code, Message: m.message}
		}
	}

	// 3. GORM 기본 에러
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Status:  http.StatusNotFound,
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// 4. DB 제약 조건 위반
	errLower := strings.ToLower(err.Error())
	if strings.Contains(errLower, "duplicate key") || strings.Contains(errLower, "unique constraint") {
		return parseDuplicateKeyError(errLower)
	}

	// 5. 기본 내부 서버 오류
	return ErrorInfo{
		Status:  http.StatusInternalServerError,
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

func parseStockError(e *service.StockError) ErrorInfo {
	data := map[string]interface{}{
		"sku":       e.SKU,
		"requested": e.Requested,
	}
	if e.VariantID != "" {
		data["variantId"] = e.VariantID
	}
	if e.SubvariantID != "" {
		data["subvariantId"] = e.SubvariantID
	}

	if errors.Is(e, service.ErrMaxItemExceeded) {
		data["limit"] = e.Limit
		return ErrorInfo{
			Status:  http.StatusBadRequest,
			Code:    MaxItemExceeded,
			Message: "Maximum quantity per order exceeded",
			Data:    data,
		}
	}

	data["available"] = e.Available
	message := "Product is out of stock"
	if e.ProductName != "" {
		data["productName"] = e.ProductName
		message = e.ProductName + " is out of stock"
	}
	return ErrorInfo{
		Status:  http.StatusConflict,
		Code:    OutOfStock,
		Message: message,
		Data:    data,
	}
}

// parseDuplicateKeyError Unique constraint 위반 에러 파싱
func parseDuplicateKeyError(errLower string) ErrorInfo {
	if strings.Contains(errLower, "sku") {
		return ErrorInfo{Status: http.StatusConflict, Code: SKUExists, Message: "SKU already exists"}
	}
	if strings.Contains(errLower, "email") {
		return ErrorInfo{Status: http.StatusConflict, Code: AuthEmailAlreadyExists, Message: "Email already exists"}
	}
	if strings.Contains(errLower, "user_id") {
		return ErrorInfo{Status: http.StatusConflict, Code: ResourceConflict, Message: "Concurrent update, please retry"}
	}
	return ErrorInfo{Status: http.StatusConflict, Code: ResourceAlreadyExists, Message: "Resource already exists"}
}

// getNotFoundMessage context에 따른 Not Found 메시지
func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "product"):
		return "Product not found"
	case strings.Contains(contextLower, "order"):
		return "Order not found"
	case strings.Contains(contextLower, "cart"):
		return "Cart not found"
	case strings.Contains(contextLower, "user"):
		return "User not found"
	}
	return "Requested resource not found"
}

// getDefaultErrorMessage context에 따른 기본 에러 메시지
func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "create"):
		return "Failed to create, please try again later"
	case strings.Contains(contextLower, "update"):
		return "Failed to update, please try again later"
	case strings.Contains(contextLower, "delete"):
		return "Failed to delete, please try again later"
	}
	return "Something went wrong, please try again later"
}
