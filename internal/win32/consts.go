package win32

// Window styles and related constants.
const (
	GWL_STYLE   = -16
	GWL_EXSTYLE = -20

	WS_CHILD        = 0x40000000
	WS_POPUP        = 0x80000000
	WS_CAPTION      = 0x00C00000
	WS_BORDER       = 0x00800000
	WS_DLGFRAME     = 0x00400000
	WS_THICKFRAME   = 0x00040000
	WS_SYSMENU      = 0x00080000
	WS_MINIMIZEBOX  = 0x00020000
	WS_MAXIMIZEBOX  = 0x00010000
	WS_VISIBLE      = 0x10000000
	WS_CLIPSIBLINGS = 0x04000000

	WS_EX_DLGMODALFRAME       = 0x00000001
	WS_EX_TOPMOST             = 0x00000008
	WS_EX_TOOLWINDOW          = 0x00000080
	WS_EX_WINDOWEDGE          = 0x00000100
	WS_EX_CLIENTEDGE          = 0x00000200
	WS_EX_STATICEDGE          = 0x00020000
	WS_EX_APPWINDOW           = 0x00040000
	WS_EX_NOACTIVATE          = 0x08000000
	WS_EX_NOREDIRECTIONBITMAP = 0x00200000

	SWP_NOSIZE        = 0x0001
	SWP_NOMOVE        = 0x0002
	SWP_NOZORDER      = 0x0004
	SWP_NOACTIVATE    = 0x0010
	SWP_FRAMECHANGED  = 0x0020
	SWP_SHOWWINDOW    = 0x0040
	SWP_NOOWNERZORDER = 0x0200

	SW_HIDE = 0
	SW_SHOW = 5

	GA_ROOT = 2

	SMTO_NORMAL      = 0x0000
	SMTO_ABORTIFHUNG = 0x0002

	SM_CXDOUBLECLK    = 36
	SM_CYDOUBLECLK    = 37
	SM_CXDRAG         = 68
	SM_CYDRAG         = 69
	SM_XVIRTUALSCREEN = 76
	SM_YVIRTUALSCREEN = 77

	MONITORINFOF_PRIMARY = 0x1
)

// Messages.
const (
	WM_NULL          = 0x0000
	WM_DESTROY       = 0x0002
	WM_CLOSE         = 0x0010
	WM_QUIT          = 0x0012
	WM_SETTINGCHANGE = 0x001A
	WM_DISPLAYCHANGE = 0x007E
	WM_MOUSEMOVE     = 0x0200
	WM_LBUTTONDOWN   = 0x0201
	WM_LBUTTONUP     = 0x0202
	WM_LBUTTONDBLCLK = 0x0203
	WM_RBUTTONDOWN   = 0x0204
	WM_RBUTTONUP     = 0x0205
	WM_RBUTTONDBLCLK = 0x0206
	WM_MBUTTONDOWN   = 0x0207
	WM_MBUTTONUP     = 0x0208
	WM_MBUTTONDBLCLK = 0x0209
	WM_MOUSEWHEEL    = 0x020A
	WM_MOUSEHWHEEL   = 0x020E
	WM_MOUSELEAVE    = 0x02A3
	WM_APP           = 0x8000

	MK_LBUTTON = 0x0001
	MK_RBUTTON = 0x0002
	MK_SHIFT   = 0x0004
	MK_CONTROL = 0x0008
	MK_MBUTTON = 0x0010

	// Undocumented Progman message that makes explorer split the desktop
	// into WorkerW windows.
	WM_SPAWN_WORKER = 0x052C
)

// Hook constants.
const (
	WH_MOUSE_LL = 14
	HC_ACTION   = 0

	LLMHF_INJECTED = 0x00000001
)

// DWM window attributes.
const (
	DWMWA_NCRENDERING_POLICY = 2
	DWMWA_BORDER_COLOR       = 34

	DWMNCRP_DISABLED = 1
	DWMWA_COLOR_NONE = 0xFFFFFFFE
)
