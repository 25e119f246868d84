package types

// 物理常量定义
const (
	GasConstant   = 8.314  // 通用气体常数 R，单位 J/(mol·K)
	CelsiusOffset = 273.15 // 摄氏度转开尔文偏移量
)

// 转化率边界常量定义
const (
	ConversionEpsilon  = 1e-8    // 转化率钳位距离，避免 log(0)、除零与负分数幂
	LowerFitConversion = 0.2     // 补偿拟合下限转化率
	UpperFitConversion = 0.8     // 补偿拟合上限转化率
	FullCureConversion = 0.99999 // 等温预测视为完全固化的转化率
	MaxConversion      = 1.0     // 检查点转化率上限
)

// 默认参数常量定义
var (
	TotalHeatDigits          int32 = 3     // 总热量报告保留的小数位数
	DefaultZeroFillSeconds         = 300.0 // 缺失数据按零填充的起始时长（秒）
	DefaultInitialConversion       = 1e-7  // 预测未给定初始转化率时使用的起始值
	PruneInterval                  = 1000  // 预测查找表裁剪间隔（步数）
	QuadratureTolerance            = 1e-12 // 自适应积分相对容差
	QuadratureMaxDepth             = 40    // 自适应积分最大二分深度
	MinimizerIterations            = 2000  // 最小化最大主迭代次数
)
