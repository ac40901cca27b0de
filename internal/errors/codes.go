package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 프론트엔드에서 이 코드를 기반으로 메시지를 매핑함

const (
	// ==================== 인증 (AUTH_) ====================
	AuthUnauthorized       = "AUTH_UNAUTHORIZED"        // 로그인 필요
	AuthInvalidCredentials = "AUTH_INVALID_CREDENTIALS" // 잘못된 이메일/비밀번호
	AuthTokenExpired       = "AUTH_TOKEN_EXPIRED"       // 토큰 만료
	AuthTokenInvalid       = "AUTH_TOKEN_INVALID"       // 잘못된 토큰
	AuthTokenRevoked       = "AUTH_TOKEN_REVOKED"       // 토큰 폐기됨
	AuthEmailAlreadyExists = "AUTH_EMAIL_EXISTS"        // 이메일 중복
	AuthUserNotFound       = "AUTH_USER_NOT_FOUND"      // 사용자 없음

	// ==================== 인가/권한 (AUTHZ_) ====================
	AuthzForbidden = "AUTHZ_FORBIDDEN"  // 접근 권한 없음
	AuthzAdminOnly = "AUTHZ_ADMIN_ONLY" // 관리자만 가능

	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT" // 잘못된 입력
	ValidationInvalidID    = "VALIDATION_INVALID_ID"    // 잘못된 ID
	ValidationRequired     = "VALIDATION_REQUIRED"      // 필수 항목
	ValidationTooShort     = "VALIDATION_TOO_SHORT"     // 너무 짧음

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"       // 충돌

	// ==================== 상품/재고 ====================
	ProductNotFound  = "PRODUCT_NOT_FOUND"   // 상품 없음 (삭제 포함)
	VariantNotFound  = "VARIANT_NOT_FOUND"   // 옵션/서브 옵션 없음
	OutOfStock       = "OUT_OF_STOCK"        // 재고 부족 (data.available)
	MaxItemExceeded  = "MAX_ITEM_EXCEEDED"   // 주문당 최대 수량 초과 (data.limit)
	SKUExists        = "SKU_EXISTS"          // SKU 중복
	PriceAboveMRP    = "PRICE_ABOVE_MRP"     // 판매가 > 정가
	InvalidProduct   = "INVALID_PRODUCT"     // 상품 정보 오류
	SKURequired      = "SKU_REQUIRED"        // SKU 누락
	InvalidQuantity  = "INVALID_QUANTITY"    // 수량 오류 (0)
	CartItemNotFound = "CART_ITEM_NOT_FOUND" // 장바구니 항목 없음

	// ==================== 주문 ====================
	EmptyCart               = "EMPTY_CART"                // 빈 장바구니
	InvalidUser             = "INVALID_USER"              // 사용자 식별 불가
	RemarkRequired          = "REMARK_REQUIRED"           // 취소 사유 필요
	InvalidStatus           = "INVALID_STATUS"            // 정의되지 않은 주문 상태
	InvalidStatusTransition = "INVALID_STATUS_TRANSITION" // 변경 불가 상태
	OrderNotFound           = "ORDER_NOT_FOUND"           // 주문 없음
	AddressNotFound         = "ADDRESS_NOT_FOUND"         // 배송지 없음

	// ==================== 내부 오류 (INTERNAL_) ====================
	TransactionFailed     = "TRANSACTION_FAILED"      // 트랜잭션 실패 (재시도 가능)
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // 서버 오류
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB 오류
)
