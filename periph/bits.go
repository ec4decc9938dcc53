package periph

// Bit positions and masks for the registers touched during bring-up.
// Section numbers refer to RM0316 (STM32F303xB/C/D/E reference manual).

// RCC_CSR, 9.4.10.
const (
	RCC_CSR_LSION  = 1 << 0
	RCC_CSR_LSIRDY = 1 << 1

	RCC_CSR_Reset = 0x0C000000
)

// RCC_APB1ENR, 9.4.8.
const (
	RCC_APB1ENR_PWREN = 1 << 28
)

// RCC_BDCR, 9.4.9. Writable only while PWR_CR.DBP is set.
const (
	RCC_BDCR_RTCSEL_Pos = 8
	RCC_BDCR_RTCSEL_Msk = 0x3
	RCC_BDCR_RTCEN      = 1 << 15
	RCC_BDCR_BDRST      = 1 << 16

	RCC_BDCR_RTCSEL_None = 0x0
	RCC_BDCR_RTCSEL_LSE  = 0x1
	RCC_BDCR_RTCSEL_LSI  = 0x2
	RCC_BDCR_RTCSEL_HSE  = 0x3

	RCC_BDCR_Reset = 0x00000018
)

// PWR_CR and PWR_CSR, 7.4.1 and 7.4.2.
const (
	PWR_CR_LPDS = 1 << 0
	PWR_CR_PDDS = 1 << 1
	PWR_CR_CWUF = 1 << 2
	PWR_CR_CSBF = 1 << 3
	PWR_CR_DBP  = 1 << 8

	PWR_CSR_WUF = 1 << 0
	PWR_CSR_SBF = 1 << 1
)

// RTC registers, 27.6.
const (
	// RTC_TR: HT[21:20] HU[19:16] MNT[14:12] MNU[11:8] ST[6:4] SU[3:0].
	RTC_TR_SU_Pos  = 0
	RTC_TR_MNU_Pos = 8
	RTC_TR_HU_Pos  = 16
	RTC_TR_PM      = 1 << 22
	RTC_TR_Msk     = 0x003F7F7F

	// RTC_DR: YT[23:20] YU[19:16] WDU[15:13] MT[12] MU[11:8] DT[5:4] DU[3:0].
	RTC_DR_DU_Pos  = 0
	RTC_DR_MU_Pos  = 8
	RTC_DR_WDU_Pos = 13
	RTC_DR_YU_Pos  = 16
	RTC_DR_Msk     = 0x00FF1F3F
	RTC_DR_Reset   = 0x00002101

	RTC_CR_WUCKSEL_Pos = 0
	RTC_CR_WUCKSEL_Msk = 0x7
	RTC_CR_FMT         = 1 << 6
	RTC_CR_WUTE        = 1 << 10
	RTC_CR_WUTIE       = 1 << 14

	RTC_ISR_WUTWF = 1 << 2
	RTC_ISR_RSF   = 1 << 5
	RTC_ISR_INITF = 1 << 6
	RTC_ISR_INIT  = 1 << 7
	RTC_ISR_WUTF  = 1 << 10
	// Event flags in ISR[13:8] are cleared by writing 0 and are not
	// write protected.
	RTC_ISR_Flags_Msk = 0x3F00
	RTC_ISR_Reset     = 0x00000007

	RTC_PRER_PREDIV_S_Pos = 0
	RTC_PRER_PREDIV_S_Msk = 0x7FFF
	RTC_PRER_PREDIV_A_Pos = 16
	RTC_PRER_PREDIV_A_Msk = 0x7F
	RTC_PRER_Reset        = 0x007F00FF

	RTC_WUTR_WUT_Msk = 0xFFFF
	RTC_WUTR_Reset   = 0x0000FFFF

	RTC_WPR_KEY_Msk = 0xFF
)

// EXTI line 20 is internally wired to the RTC wakeup event, 14.2.
const (
	EXTI_IMR1_MR20  = 1 << 20
	EXTI_RTSR1_TR20 = 1 << 20
	EXTI_PR1_PR20   = 1 << 20

	EXTI_IMR1_Reset = 0x1F800000
)

// DBGMCU_CR and DBGMCU_APB1_FZ, 33.16.
const (
	DBGMCU_CR_DBG_STOP         = 1 << 1
	DBGMCU_APB1FZ_DBG_RTC_STOP = 1 << 10
)

// SCB_SCR, PM0214 4.4.6.
const (
	SCB_SCR_SLEEPONEXIT = 1 << 1
	SCB_SCR_SLEEPDEEP   = 1 << 2
)
